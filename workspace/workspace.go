// Package workspace confines filesystem effects of tools to a single root
// directory.
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrPathEscape is returned when a path resolves outside of the root.
	ErrPathEscape  = errors.New("path escapes workspace root")
	ErrInvalidPath = errors.New("invalid path")
)

const (
	// MetaDir holds files written by taskloop itself. It is hidden from
	// artifact lookup.
	MetaDir       = ".taskloop"
	transcriptDir = "shell"
)

// Workspace is the root directory every tool works in.
type Workspace struct {
	root string
}

// New creates the root directory if needed and returns a Workspace for it.
// The root is made absolute and its symlinks are resolved.
func New(root string) (*Workspace, error) {
	if root == "" {
		return nil, goerr.Wrap(ErrInvalidPath, "workspace root is empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve workspace root", goerr.V("root", root))
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create workspace root", goerr.V("root", abs))
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate workspace root", goerr.V("root", abs))
	}

	return &Workspace{root: resolved}, nil
}

// Root returns the absolute root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps a path given by the model to an absolute path inside the root.
// Relative paths are joined with the root; absolute paths must already be
// inside it. A path is rejected if it leaves the root lexically, or if an
// existing ancestor is a symlink pointing outside of the root.
func (w *Workspace) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", goerr.Wrap(ErrInvalidPath, "path is empty")
	}
	if strings.ContainsRune(p, 0) {
		return "", goerr.Wrap(ErrInvalidPath, "path contains NUL", goerr.V("path", p))
	}

	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(w.root, target)
	}
	target = filepath.Clean(target)

	if !w.contains(target) {
		return "", goerr.Wrap(ErrPathEscape, "path is outside of workspace",
			goerr.V("path", p),
			goerr.V("root", w.root),
		)
	}

	real, err := evalExisting(target)
	if err != nil {
		return "", goerr.Wrap(err, "failed to evaluate path", goerr.V("path", p))
	}
	if !w.contains(real) {
		return "", goerr.Wrap(ErrPathEscape, "path escapes workspace through a symlink",
			goerr.V("path", p),
			goerr.V("resolved", real),
		)
	}

	return target, nil
}

// Rel returns the path relative to the root, using forward slashes.
func (w *Workspace) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", goerr.Wrap(err, "failed to make path relative", goerr.V("path", abs))
	}
	if !w.contains(abs) {
		return "", goerr.Wrap(ErrPathEscape, "path is outside of workspace", goerr.V("path", abs))
	}
	return filepath.ToSlash(rel), nil
}

// TranscriptDir returns the directory for shell transcripts, creating it if needed.
func (w *Workspace) TranscriptDir() (string, error) {
	dir := filepath.Join(w.root, MetaDir, transcriptDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", goerr.Wrap(err, "failed to create transcript directory", goerr.V("dir", dir))
	}
	return dir, nil
}

func (w *Workspace) contains(abs string) bool {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// evalExisting resolves symlinks of the deepest existing ancestor of p and
// appends the remaining, not yet existing, elements.
func evalExisting(p string) (string, error) {
	var rest []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, rest...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

// Artifact is a file found in the workspace.
type Artifact struct {
	// Path is absolute.
	Path    string
	RelPath string
	ModTime time.Time
	Size    int64
}

// FindArtifacts returns regular files with the extension (case insensitive)
// modified at or after since, ordered by modification time and then path.
// Files under MetaDir are skipped. A zero since matches every file.
func (w *Workspace) FindArtifacts(ext string, since time.Time) ([]Artifact, error) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	// file systems with second resolution would otherwise hide files
	// written in the same second the run started
	threshold := since.Truncate(time.Second)

	var found []Artifact
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == MetaDir && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ext != "" && strings.ToLower(filepath.Ext(path)) != ext {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !since.IsZero() && info.ModTime().Before(threshold) {
			return nil
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		found = append(found, Artifact{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to walk workspace", goerr.V("root", w.root))
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].ModTime.Equal(found[j].ModTime) {
			return found[i].ModTime.Before(found[j].ModTime)
		}
		return found[i].Path < found[j].Path
	})
	return found, nil
}

// Latest returns the most recent artifact found by FindArtifacts.
func (w *Workspace) Latest(ext string, since time.Time) (*Artifact, error) {
	found, err := w.FindArtifacts(ext, since)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	last := found[len(found)-1]
	return &last, nil
}
