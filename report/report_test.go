package report_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/taskloop/report"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	gt.NoError(t, png.Encode(&buf, img)).Required()
	gt.NoError(t, os.WriteFile(path, buf.Bytes(), 0644)).Required()
}

func TestImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.JPG", "notes.txt", "c.gif"} {
		gt.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)).Required()
	}
	gt.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755)).Required()

	images, err := report.Images(dir)
	gt.NoError(t, err).Required()
	gt.Equal(t, images, []string{
		filepath.Join(dir, "a.JPG"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "c.gif"),
	})

	_, err = report.Images(filepath.Join(dir, "missing"))
	gt.Error(t, err)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	charts := filepath.Join(dir, "charts")
	gt.NoError(t, os.Mkdir(charts, 0755)).Required()
	writePNG(t, filepath.Join(charts, "01_scores.png"), 64, 32)
	writePNG(t, filepath.Join(charts, "02_hours.png"), 20, 80)

	out := filepath.Join(dir, "report.pdf")
	r := report.New(report.WithTitle("Student Performance"))
	pages, err := r.Render("Average score is 72.4.\nStudy hours correlate with scores.", charts, out)
	gt.NoError(t, err).Required()
	gt.Equal(t, pages, 3)

	data, err := os.ReadFile(out)
	gt.NoError(t, err).Required()
	gt.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderWithoutImages(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.pdf")

	pages, err := report.New().Render("text only", dir, out)
	gt.NoError(t, err).Required()
	gt.Equal(t, pages, 1)
}

func TestRenderBrokenImage(t *testing.T) {
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644)).Required()

	_, err := report.New().Render("text", dir, filepath.Join(dir, "report.pdf"))
	gt.Error(t, err)
}

func TestFit(t *testing.T) {
	w, h := report.Fit(200, 100, 180, 267)
	gt.Equal(t, w, 180.0)
	gt.Equal(t, h, 90.0)

	w, h = report.Fit(50, 400, 180, 200)
	gt.Equal(t, w, 25.0)
	gt.Equal(t, h, 200.0)
}
