package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	got := String()
	for _, part := range []string{Version, Commit, Date} {
		if !strings.Contains(got, part) {
			t.Errorf("Expected %q in %q", part, got)
		}
	}
}
