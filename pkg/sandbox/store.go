// Package sandbox persists the generated website as three files and reads it back
// for prompting and serving.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sitesmith/pkg/logx"
)

const (
	MarkupFile = "index.html"
	StyleFile  = "style.css"
	ScriptFile = "script.js"

	// SavedMessage is returned by a successful Save and recorded as a turn.
	SavedMessage = "Code saved successfully. The website is now updated in the sandbox."

	// NoCodeSentinel is returned by RenderForPrompt for a fresh sandbox.
	NoCodeSentinel = "No website code found. Start by generating the initial structure."

	dirMode  = 0o755
	fileMode = 0o644
)

var (
	// ErrPersistence wraps every write failure from Save and read failures
	// other than a missing markup file.
	ErrPersistence = errors.New("persistence failure")
	// ErrOutsideRoot is returned for paths escaping the sandbox root.
	ErrOutsideRoot = errors.New("path outside sandbox")
)

// Store owns the sandbox directory. Writes are serialized; the three-file
// save is not transactional across files.
type Store struct {
	root   string
	logger *logx.Logger
	mu     sync.RWMutex
}

// NewStore returns a store rooted at root. The directory is created lazily.
func NewStore(root string) *Store {
	return &Store{
		root:   root,
		logger: logx.NewLogger("sandbox"),
	}
}

// Root returns the sandbox directory.
func (s *Store) Root() string {
	return s.root
}

// Save wraps markup in the page template and writes all three artifacts,
// each through a temp file and rename.
func (s *Store) Save(markup, style, script string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, dirMode); err != nil {
		return "", fmt.Errorf("%w: create sandbox %s: %w", ErrPersistence, s.root, err)
	}

	files := []struct {
		name    string
		content string
	}{
		{MarkupFile, WrapPage(markup)},
		{StyleFile, style},
		{ScriptFile, script},
	}
	for _, f := range files {
		if err := writeAtomic(filepath.Join(s.root, f.name), []byte(f.content)); err != nil {
			s.logger.Error("❌ Failed to write %s: %v", f.name, err)
			return "", fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	s.logger.Info("💾 Saved website (%d bytes markup, %d bytes style, %d bytes script)", len(markup), len(style), len(script))
	return SavedMessage, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}

	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	cleanup = false
	return nil
}

// Snapshot is the current content of the three artifacts.
type Snapshot struct {
	Page   string // full index.html
	Body   string // body slot of Page
	Style  string
	Script string
}

// Load reads the artifacts. Missing style or script read as empty; a missing
// markup file returns fs.ErrNotExist.
func (s *Store) Load() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page, err := os.ReadFile(filepath.Join(s.root, MarkupFile))
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", MarkupFile, err)
	}
	style, err := readOptional(filepath.Join(s.root, StyleFile))
	if err != nil {
		return Snapshot{}, err
	}
	script, err := readOptional(filepath.Join(s.root, ScriptFile))
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Page:   string(page),
		Body:   BodySlot(string(page)),
		Style:  style,
		Script: script,
	}, nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}

// RenderForPrompt returns the current code in labelled fences for embedding in
// a prompt, or NoCodeSentinel when nothing has been generated yet.
func (s *Store) RenderForPrompt() (string, error) {
	snap, err := s.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return NoCodeSentinel, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	var b strings.Builder
	b.WriteString("**CURRENT WEBSITE CODE**:\n")
	fmt.Fprintf(&b, "HTML (body content):\n```html\n%s\n```\n", snap.Body)
	fmt.Fprintf(&b, "CSS (%s):\n```css\n%s\n```\n", StyleFile, snap.Style)
	fmt.Fprintf(&b, "JS (%s):\n```javascript\n%s\n```", ScriptFile, snap.Script)
	return b.String(), nil
}

// Initialize creates the sandbox and bootstrap files that do not exist yet.
// Existing files are left alone.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, dirMode); err != nil {
		return fmt.Errorf("create sandbox %s: %w", s.root, err)
	}

	placeholders := map[string]string{
		MarkupFile: PlaceholderPage,
		StyleFile:  "",
		ScriptFile: "",
	}
	for name, content := range placeholders {
		path := filepath.Join(s.root, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", name, err)
		}
		if err := writeAtomic(path, []byte(content)); err != nil {
			return err
		}
		s.logger.Info("📄 Created placeholder %s", name)
	}
	return nil
}
