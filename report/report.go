// Package report renders the final report of a run as a PDF document: one
// page of text followed by one page per chart image.
package report

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/m-mizutani/goerr/v2"
)

const (
	defaultFontFamily = "Helvetica"
	defaultFontSize   = 11
	lineHeight        = 5.5
	margin            = 15.0
)

var imageExts = map[string]string{
	".png":  "PNG",
	".jpg":  "JPG",
	".jpeg": "JPG",
	".gif":  "GIF",
}

// Renderer writes report PDFs.
type Renderer struct {
	title    string
	fontPath string
	fontSize float64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTitle sets the heading printed on the text page.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		r.title = title
	}
}

// WithUTF8Font sets a TrueType font file used for the text page. Without it
// the text is limited to the cp1252 character set.
func WithUTF8Font(path string) Option {
	return func(r *Renderer) {
		r.fontPath = path
	}
}

func WithFontSize(size float64) Option {
	return func(r *Renderer) {
		r.fontSize = size
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{fontSize: defaultFontSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Images returns the supported image files directly under dir in lexical order.
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read image directory", goerr.V("dir", dir))
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// Render writes text and the images in imageDir to outPath and returns the
// number of pages.
func (r *Renderer) Render(text, imageDir, outPath string) (int, error) {
	images, err := Images(imageDir)
	if err != nil {
		return 0, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)

	family := defaultFontFamily
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.fontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", r.fontPath)
		pdf.AddUTF8Font(family, "B", r.fontPath)
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	if r.title != "" {
		pdf.SetFont(family, "B", r.fontSize+5)
		pdf.MultiCell(0, lineHeight*1.6, tr(r.title), "", "L", false)
		pdf.Ln(lineHeight)
	}
	pdf.SetFont(family, "", r.fontSize)
	pdf.MultiCell(0, lineHeight, tr(text), "", "L", false)

	pageW, pageH := pdf.GetPageSize()
	boxW := pageW - 2*margin
	boxH := pageH - 2*margin

	for _, img := range images {
		opt := fpdf.ImageOptions{
			ImageType: imageExts[strings.ToLower(filepath.Ext(img))],
			ReadDpi:   true,
		}
		info := pdf.RegisterImageOptions(img, opt)
		if pdf.Err() {
			return 0, goerr.Wrap(pdf.Error(), "failed to load image", goerr.V("image", img))
		}

		w, h := fit(info.Width(), info.Height(), boxW, boxH)
		pdf.AddPage()
		pdf.ImageOptions(img, margin+(boxW-w)/2, margin+(boxH-h)/2, w, h, false, opt, 0, "")
	}

	pages := pdf.PageCount()
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return 0, goerr.Wrap(err, "failed to write report", goerr.V("path", outPath))
	}
	return pages, nil
}

// fit scales w x h to the largest size inside boxW x boxH keeping the aspect ratio.
func fit(w, h, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	scale := min(boxW/w, boxH/h)
	return w * scale, h * scale
}
