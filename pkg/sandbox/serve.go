package sandbox

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ContentType infers the response type for a sandbox file.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	default:
		return "text/html"
	}
}

// Open reads a file under the sandbox root for static serving. An empty name
// means the page itself.
func (s *Store) Open(name string) ([]byte, error) {
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	if clean == "/" {
		clean = "/" + MarkupFile
	}
	full := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return data, nil
}
