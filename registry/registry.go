// CLAUDE:SUMMARY Flat profile registry file (one path per line) and the single active-profile Session.
// Package registry keeps the list of known profile files and owns the one
// profile that is active in the process.
package registry

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Registry is a text file listing profile paths, one per line. Blank lines
// and lines starting with # are ignored.
type Registry struct {
	path string
	mu   sync.Mutex
}

// New returns a Registry backed by path. The file is created on first Add.
func New(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the registry file path.
func (r *Registry) Path() string { return r.path }

// List returns the registered paths in file order, without duplicates.
// A missing file is an empty registry.
func (r *Registry) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// Add registers path. Relative paths are made absolute. Adding a path that
// is already listed is a no-op.
func (r *Registry) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.read()
	if err != nil {
		return err
	}
	for _, p := range list {
		if p == abs {
			return nil
		}
	}
	return r.write(append(list, abs))
}

// Remove unregisters path. The profile file itself is left alone.
func (r *Registry) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.read()
	if err != nil {
		return err
	}
	out := list[:0]
	for _, p := range list {
		if p != abs {
			out = append(out, p)
		}
	}
	if len(out) == len(list) {
		return nil
	}
	return r.write(out)
}

func (r *Registry) read() ([]string, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	list := []string{}
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		list = append(list, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return list, nil
}

// write replaces the file atomically through a temp file in the same dir.
func (r *Registry) write(list []string) error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
	}
	var buf bytes.Buffer
	for _, p := range list {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("registry: %w", err)
	}
	return nil
}
