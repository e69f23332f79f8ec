package tool

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
)

func (r *Registry) createFile(args map[string]any) (map[string]any, error) {
	name := stringArg(args, "file_name")
	contents := stringArg(args, "file_contents")

	path, err := r.ws.Resolve(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create parent directory", goerr.V("path", path))
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		return nil, goerr.Wrap(err, "failed to write file", goerr.V("path", path))
	}

	rel, err := r.ws.Rel(path)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"path":    rel,
		"bytes":   len(contents),
		"message": "Successfully created file at " + rel,
	}, nil
}

// replaceText replaces old_str only if it occurs exactly once. On any error
// the file is left untouched.
func (r *Registry) replaceText(args map[string]any) (map[string]any, error) {
	name := stringArg(args, "file_name")
	oldStr := stringArg(args, "old_str")
	newStr := stringArg(args, "new_str")

	if oldStr == "" {
		return nil, goerr.Wrap(taskloop.ErrInvalidArgument, "old_str must not be empty", goerr.V("file_name", name))
	}

	path, err := r.ws.Resolve(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrFileNotFound, "file not found", goerr.V("file_name", name))
		}
		return nil, goerr.Wrap(err, "failed to stat file", goerr.V("path", path))
	}
	if info.IsDir() {
		return nil, goerr.Wrap(taskloop.ErrInvalidArgument, "file_name is a directory", goerr.V("file_name", name))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read file", goerr.V("path", path))
	}
	content := string(raw)

	switch count := strings.Count(content, oldStr); {
	case count == 0:
		return nil, goerr.Wrap(ErrTextNotFound, "old_str does not appear in the file",
			goerr.V("file_name", name),
			goerr.V("old_str", oldStr),
		)
	case count > 1:
		return nil, goerr.Wrap(ErrTextAmbiguous, "old_str must appear exactly once",
			goerr.V("file_name", name),
			goerr.V("count", count),
		)
	}

	updated := strings.Replace(content, oldStr, newStr, 1)
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return nil, goerr.Wrap(err, "failed to write file", goerr.V("path", path))
	}

	rel, err := r.ws.Rel(path)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"path":    rel,
		"message": "Successfully replaced text in " + rel,
	}, nil
}
