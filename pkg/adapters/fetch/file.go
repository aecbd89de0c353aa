package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/govmeta/pkg/core"
)

// File reads local files, addressed either as file:// URLs or plain paths.
// Every path must resolve inside Root (the working directory when empty);
// relative paths resolve against it. When Allow is non-empty, only paths
// matching one of its doublestar patterns (relative to Root) can be read.
type File struct {
	Root  string
	Allow []string
}

// NewFile creates a File fetcher rooted at root.
func NewFile(root string, allow ...string) *File {
	return &File{Root: root, Allow: allow}
}

// Path maps a location to the file it designates. Locations that escape
// Root are rejected.
func (f *File) Path(location string) (string, error) {
	p := location
	if strings.HasPrefix(location, "file:") {
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", core.ErrUnreachable, location, err)
		}
		p = u.Path
		if p == "" {
			p = u.Opaque
		}
	}
	root, err := f.root()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", core.ErrUnreachable, location, err)
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	if !within(root, p) {
		return "", fmt.Errorf("%w: %s: path outside root", core.ErrUnreachable, location)
	}
	return p, nil
}

func (f *File) root() (string, error) {
	return filepath.Abs(f.Root)
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Allowed reports whether the allow-list admits path.
func (f *File) Allowed(path string) bool {
	if len(f.Allow) == 0 {
		return true
	}
	root, err := f.root()
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range f.Allow {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// confined follows symlinks in path and checks the target is still inside Root.
func (f *File) confined(path string) error {
	root, err := f.root()
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	if !within(root, resolved) {
		return errOutsideRoot
	}
	return nil
}

var errOutsideRoot = errors.New("path outside root")

// Fetch implements core.Fetcher.
func (f *File) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrUnreachable, location, err)
	}
	path, err := f.Path(location)
	if err != nil {
		return nil, err
	}
	if !f.Allowed(path) {
		return nil, fmt.Errorf("%w: %s: path not allowed", core.ErrUnreachable, location)
	}
	if err := f.confined(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: no such file", core.ErrUnreachable, location)
		}
		return nil, fmt.Errorf("%w: %s: %w", core.ErrUnreachable, location, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: no such file", core.ErrUnreachable, location)
		}
		return nil, fmt.Errorf("%w: %s: %w", core.ErrUnreachable, location, err)
	}
	return data, nil
}
