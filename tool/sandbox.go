package tool

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscapesSandbox is returned by Sandbox.Resolve for absolute paths and
// any path that would traverse above the sandbox root.
var ErrPathEscapesSandbox = errors.New("path escapes sandbox root")

// Sandbox confines filesystem-touching tool handlers to a single root
// directory. Handlers must resolve every user-supplied path through Resolve;
// this is the contract the executor exposes so handler authors can uphold the
// traversal restriction without re-implementing it.
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at dir. The directory is not required
// to exist yet; handlers create it lazily as needed.
func NewSandbox(dir string) *Sandbox {
	return &Sandbox{root: filepath.Clean(dir)}
}

// Root returns the sandbox root directory.
func (s *Sandbox) Root() string { return s.root }

// Resolve maps a relative, traversal-free path to an absolute path inside the
// sandbox. Absolute inputs and any input containing a parent-directory
// component are rejected.
func (s *Sandbox) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("resolve %q: %w", rel, ErrPathEscapesSandbox)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("resolve %q: %w", rel, ErrPathEscapesSandbox)
	}
	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("resolve %q: %w", rel, ErrPathEscapesSandbox)
	}
	return filepath.Join(s.root, cleaned), nil
}
