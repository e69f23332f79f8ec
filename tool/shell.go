package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type shellOutcome struct {
	command   string
	startedAt time.Time
	duration  time.Duration
	exitCode  int
	timedOut  bool
	stdout    string
	stderr    string
}

// execShell runs the command in the workspace root. A non-zero exit code is
// a result, not an error; only a failure to start the process is an error.
func (r *Registry) execShell(ctx context.Context, args map[string]any) (map[string]any, error) {
	command := stringArg(args, "command")

	runCtx := ctx
	if r.shellTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.shellTimeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.shell, "-c", command)
	cmd.Dir = r.ws.Root()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// background children may keep the pipes open after the shell is killed
	cmd.WaitDelay = time.Second

	out := shellOutcome{command: command, startedAt: r.now()}
	started := time.Now()
	runErr := cmd.Run()
	out.duration = time.Since(started)
	out.stdout = stdout.String()
	out.stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		out.exitCode = 0
	case errors.As(runErr, &exitErr):
		out.exitCode = exitErr.ExitCode()
		out.timedOut = runCtx.Err() == context.DeadlineExceeded
	default:
		return nil, goerr.Wrap(runErr, "failed to run shell command", goerr.V("command", command))
	}

	logFile, err := r.writeTranscript(out)
	if err != nil {
		return nil, err
	}

	stdoutPreview, stdoutCut := Truncate(out.stdout, r.previewLimit)
	stderrPreview, stderrCut := Truncate(out.stderr, r.previewLimit)

	return map[string]any{
		"exit_code": out.exitCode,
		"stdout":    stdoutPreview,
		"stderr":    stderrPreview,
		"truncated": stdoutCut || stderrCut,
		"timed_out": out.timedOut,
		"log_file":  logFile,
	}, nil
}

// writeTranscript saves the full, untruncated output and returns its path
// relative to the workspace.
func (r *Registry) writeTranscript(out shellOutcome) (string, error) {
	dir, err := r.ws.TranscriptDir()
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s.log", out.startedAt.UTC().Format("20060102T150405.000Z"), uuid.NewString())
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create transcript", goerr.V("path", path))
	}
	defer f.Close()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "$ %s\n", out.command)
	fmt.Fprintf(&buf, "started_at: %s\n", out.startedAt.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&buf, "duration: %s\n", out.duration)
	fmt.Fprintf(&buf, "exit_code: %d\n", out.exitCode)
	if out.timedOut {
		buf.WriteString("timed_out: true\n")
	}
	buf.WriteString("--- stdout ---\n")
	buf.WriteString(out.stdout)
	buf.WriteString("\n--- stderr ---\n")
	buf.WriteString(out.stderr)
	buf.WriteString("\n")

	if _, err := f.Write(buf.Bytes()); err != nil {
		return "", goerr.Wrap(err, "failed to write transcript", goerr.V("path", path))
	}

	return r.ws.Rel(path)
}
