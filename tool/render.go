package tool

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

func (r *Registry) renderReport(args map[string]any) (map[string]any, error) {
	imageDir := stringArg(args, "image_dir")
	if imageDir == "" {
		imageDir = "."
	}
	imagePath, err := r.ws.Resolve(imageDir)
	if err != nil {
		return nil, err
	}
	outPath, err := r.ws.Resolve(stringArg(args, "output_file"))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create output directory", goerr.V("path", outPath))
	}

	pages, err := r.renderer.Render(stringArg(args, "report_text"), imagePath, outPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to render report", goerr.V("output_file", outPath))
	}

	rel, err := r.ws.Rel(outPath)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"path":  rel,
		"pages": pages,
	}, nil
}
