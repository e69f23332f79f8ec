package tool_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/taskloop"
	"github.com/m-mizutani/taskloop/tool"
	"github.com/m-mizutani/taskloop/workspace"
)

func setup(t *testing.T, opts ...tool.Option) (*tool.Registry, *workspace.Workspace) {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	gt.NoError(t, err).Required()
	return tool.NewRegistry(ws, opts...), ws
}

func readFile(t *testing.T, ws *workspace.Workspace, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(ws.Root(), rel))
	gt.NoError(t, err).Required()
	return string(data)
}

type renderFunc func(text, imageDir, outPath string) (int, error)

func (f renderFunc) Render(text, imageDir, outPath string) (int, error) {
	return f(text, imageDir, outPath)
}

func TestParseKind(t *testing.T) {
	gt.Equal(t, tool.ParseKind("create_file"), tool.KindCreateFile)
	gt.Equal(t, tool.ParseKind("str_replace"), tool.KindReplaceText)
	gt.Equal(t, tool.ParseKind("shell_exec"), tool.KindShellExec)
	gt.Equal(t, tool.ParseKind("render_report"), tool.KindRenderReport)
	gt.Equal(t, tool.ParseKind("send_message"), tool.KindUnknown)
	gt.Equal(t, tool.KindUnknown.String(), "unknown")
	gt.Equal(t, tool.KindShellExec.String(), "shell_exec")
}

func TestSpecs(t *testing.T) {
	reg, _ := setup(t)
	specs := reg.Specs()
	gt.A(t, specs).Length(3)
	for _, s := range specs {
		gt.NoError(t, s.Validate())
	}

	withRenderer, _ := setup(t, tool.WithRenderer(renderFunc(func(string, string, string) (int, error) {
		return 1, nil
	})))
	specs = withRenderer.Specs()
	gt.A(t, specs).Length(4)
	gt.Equal(t, specs[3].Name, "render_report")
}

func TestUnknownTool(t *testing.T) {
	reg, _ := setup(t)
	ctx := context.Background()

	_, err := reg.Run(ctx, "send_message", map[string]any{"message": "hi"})
	gt.True(t, errors.Is(err, taskloop.ErrUnknownTool))

	// render_report is unknown without a renderer
	_, err = reg.Run(ctx, "render_report", map[string]any{"report_text": "x", "output_file": "r.pdf"})
	gt.True(t, errors.Is(err, taskloop.ErrUnknownTool))
}

func TestArgumentValidation(t *testing.T) {
	reg, _ := setup(t)
	ctx := context.Background()

	_, err := reg.Run(ctx, "create_file", map[string]any{"file_name": "a.txt"})
	gt.True(t, errors.Is(err, taskloop.ErrInvalidArgument))

	_, err = reg.Run(ctx, "shell_exec", map[string]any{"command": 42})
	gt.True(t, errors.Is(err, taskloop.ErrInvalidArgument))

	_, err = reg.Run(ctx, "str_replace", nil)
	gt.True(t, errors.Is(err, taskloop.ErrInvalidArgument))
}

func TestCreateFile(t *testing.T) {
	reg, ws := setup(t)
	ctx := context.Background()

	res, err := reg.Run(ctx, "create_file", map[string]any{
		"file_name":     "scripts/analysis.py",
		"file_contents": "print('hello')\n",
	})
	gt.NoError(t, err).Required()
	gt.Equal(t, res["path"], any("scripts/analysis.py"))
	gt.Equal(t, readFile(t, ws, "scripts/analysis.py"), "print('hello')\n")

	// overwrite
	_, err = reg.Run(ctx, "create_file", map[string]any{
		"file_name":     "scripts/analysis.py",
		"file_contents": "print('bye')\n",
	})
	gt.NoError(t, err)
	gt.Equal(t, readFile(t, ws, "scripts/analysis.py"), "print('bye')\n")
}

func TestCreateFileRejectsEscape(t *testing.T) {
	reg, ws := setup(t)

	for _, name := range []string{"../evil.sh", "a/../../evil.sh", "/tmp/evil.sh", "../../../../../../evil.sh"} {
		_, err := reg.Run(context.Background(), "create_file", map[string]any{
			"file_name":     name,
			"file_contents": "rm -rf /",
		})
		gt.True(t, errors.Is(err, workspace.ErrPathEscape))
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(ws.Root()), "evil.sh"))
	gt.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReplaceText(t *testing.T) {
	type testCase struct {
		content string
		oldStr  string
		wantErr error
		want    string
	}

	runTest := func(tc testCase) func(t *testing.T) {
		return func(t *testing.T) {
			reg, ws := setup(t)
			path := filepath.Join(ws.Root(), "main.py")
			gt.NoError(t, os.WriteFile(path, []byte(tc.content), 0644)).Required()

			_, err := reg.Run(context.Background(), "str_replace", map[string]any{
				"file_name": "main.py",
				"old_str":   tc.oldStr,
				"new_str":   "y = 2",
			})

			if tc.wantErr != nil {
				gt.True(t, errors.Is(err, tc.wantErr))
				gt.Equal(t, readFile(t, ws, "main.py"), tc.content)
				return
			}
			gt.NoError(t, err)
			gt.Equal(t, readFile(t, ws, "main.py"), tc.want)
		}
	}

	t.Run("exactly once", runTest(testCase{
		content: "x = 1\nprint(x)\n",
		oldStr:  "x = 1",
		want:    "y = 2\nprint(x)\n",
	}))
	t.Run("not found", runTest(testCase{
		content: "x = 1\n",
		oldStr:  "z = 3",
		wantErr: tool.ErrTextNotFound,
	}))
	t.Run("appears twice", runTest(testCase{
		content: "x = 1\nx = 1\n",
		oldStr:  "x = 1",
		wantErr: tool.ErrTextAmbiguous,
	}))
	t.Run("empty old_str", runTest(testCase{
		content: "x = 1\n",
		oldStr:  "",
		wantErr: taskloop.ErrInvalidArgument,
	}))
}

func TestReplaceTextMissingFile(t *testing.T) {
	reg, _ := setup(t)
	_, err := reg.Run(context.Background(), "str_replace", map[string]any{
		"file_name": "nothing.py",
		"old_str":   "a",
		"new_str":   "b",
	})
	gt.True(t, errors.Is(err, tool.ErrFileNotFound))
	gt.False(t, errors.Is(err, tool.ErrTextNotFound))
}

func TestShellExec(t *testing.T) {
	reg, ws := setup(t)
	ctx := context.Background()

	res, err := reg.Run(ctx, "shell_exec", map[string]any{"command": "echo hello && pwd"})
	gt.NoError(t, err).Required()
	gt.Equal(t, res["exit_code"], any(0))
	gt.S(t, res["stdout"].(string)).Contains("hello")
	gt.S(t, res["stdout"].(string)).Contains(ws.Root())
	gt.Equal(t, res["truncated"], any(false))

	logFile := res["log_file"].(string)
	gt.True(t, strings.HasPrefix(logFile, ".taskloop/shell/"))
	gt.S(t, readFile(t, ws, logFile)).Contains("$ echo hello && pwd")
}

func TestShellExecNonZeroExit(t *testing.T) {
	reg, ws := setup(t)

	res, err := reg.Run(context.Background(), "shell_exec", map[string]any{
		"command": "echo oops >&2; exit 3",
	})
	gt.NoError(t, err).Required()
	gt.Equal(t, res["exit_code"], any(3))
	gt.S(t, res["stderr"].(string)).Contains("oops")
	gt.S(t, readFile(t, ws, res["log_file"].(string))).Contains("exit_code: 3")
}

func TestShellExecTruncatesPreview(t *testing.T) {
	const limit = 200
	reg, ws := setup(t, tool.WithPreviewLimit(limit))

	res, err := reg.Run(context.Background(), "shell_exec", map[string]any{
		"command": "i=0; while [ $i -lt 500 ]; do echo line-$i; i=$((i+1)); done",
	})
	gt.NoError(t, err).Required()

	stdout := res["stdout"].(string)
	gt.True(t, len([]rune(stdout)) <= limit)
	gt.S(t, stdout).Contains("chars truncated")
	gt.S(t, stdout).Contains("line-0\n")
	gt.S(t, stdout).Contains("line-499")
	gt.Equal(t, res["truncated"], any(true))

	transcript := readFile(t, ws, res["log_file"].(string))
	for _, want := range []string{"line-0\n", "line-250\n", "line-499\n"} {
		gt.S(t, transcript).Contains(want)
	}
}

func TestShellExecPreviewLimitKeepsMarker(t *testing.T) {
	reg, _ := setup(t, tool.WithPreviewLimit(5))

	res, err := reg.Run(context.Background(), "shell_exec", map[string]any{
		"command": "i=0; while [ $i -lt 100 ]; do echo line-$i; i=$((i+1)); done",
	})
	gt.NoError(t, err).Required()

	stdout := res["stdout"].(string)
	gt.True(t, len([]rune(stdout)) <= tool.MinPreviewLimit)
	gt.S(t, stdout).Contains("chars truncated")
	gt.Equal(t, res["truncated"], any(true))
}

func TestShellExecTimeout(t *testing.T) {
	reg, _ := setup(t, tool.WithShellTimeout(100*time.Millisecond))

	res, err := reg.Run(context.Background(), "shell_exec", map[string]any{"command": "sleep 5"})
	gt.NoError(t, err).Required()
	gt.Equal(t, res["timed_out"], any(true))
	gt.NotEqual(t, res["exit_code"], any(0))
}

func TestShellExecMissingShell(t *testing.T) {
	reg, _ := setup(t, tool.WithShell("/nonexistent/shell"))
	_, err := reg.Run(context.Background(), "shell_exec", map[string]any{"command": "true"})
	gt.Error(t, err)
}

func TestShellTranscriptNames(t *testing.T) {
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	reg, _ := setup(t, tool.WithClock(func() time.Time { return now }))

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		res, err := reg.Run(context.Background(), "shell_exec", map[string]any{"command": "true"})
		gt.NoError(t, err).Required()
		name := res["log_file"].(string)
		gt.S(t, name).Contains("20250203T040506.000Z-")
		gt.False(t, seen[name])
		seen[name] = true
	}
}

func TestRenderReport(t *testing.T) {
	var gotText, gotDir, gotOut string
	reg, ws := setup(t, tool.WithRenderer(renderFunc(func(text, imageDir, outPath string) (int, error) {
		gotText, gotDir, gotOut = text, imageDir, outPath
		return 3, nil
	})))

	res, err := reg.Run(context.Background(), "render_report", map[string]any{
		"report_text": "Summary",
		"image_dir":   "charts",
		"output_file": "out/report.pdf",
	})
	gt.NoError(t, err).Required()
	gt.Equal(t, res["pages"], any(3))
	gt.Equal(t, res["path"], any("out/report.pdf"))
	gt.Equal(t, gotText, "Summary")
	gt.Equal(t, gotDir, filepath.Join(ws.Root(), "charts"))
	gt.Equal(t, gotOut, filepath.Join(ws.Root(), "out", "report.pdf"))

	_, err = reg.Run(context.Background(), "render_report", map[string]any{
		"report_text": "Summary",
		"output_file": "../report.pdf",
	})
	gt.True(t, errors.Is(err, workspace.ErrPathEscape))
}

func TestRecoverPanic(t *testing.T) {
	reg, _ := setup(t, tool.WithRenderer(renderFunc(func(string, string, string) (int, error) {
		panic("boom")
	})))

	res, err := reg.Run(context.Background(), "render_report", map[string]any{
		"report_text": "x",
		"output_file": "r.pdf",
	})
	gt.Error(t, err)
	gt.V(t, res).Nil()
	gt.S(t, err.Error()).Contains("boom")
}
