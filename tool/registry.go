// Package tool implements the tools the model can call during a run: file
// creation, single occurrence text replacement, shell execution and report
// rendering. Every path is confined to a workspace.
package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
	"github.com/m-mizutani/taskloop/workspace"
)

const (
	DefaultShellTimeout = 10 * time.Minute
	defaultShell        = "sh"
)

// Renderer writes a report document from text and a directory of images.
// It returns the number of pages written.
type Renderer interface {
	Render(text, imageDir, outPath string) (int, error)
}

// Registry dispatches tool calls by name. It implements taskloop.ToolSet.
type Registry struct {
	ws           *workspace.Workspace
	previewLimit int
	shellTimeout time.Duration
	shell        string
	renderer     Renderer
	now          func() time.Time
}

var _ taskloop.ToolSet = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithPreviewLimit sets the rune budget of each shell output stream. Values
// below MinPreviewLimit are raised to it.
func WithPreviewLimit(limit int) Option {
	return func(r *Registry) {
		r.previewLimit = max(limit, MinPreviewLimit)
	}
}

// WithShellTimeout bounds a single shell_exec. Zero disables the timeout.
func WithShellTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.shellTimeout = d
	}
}

// WithShell sets the shell binary invoked as `<shell> -c <command>`.
func WithShell(shell string) Option {
	return func(r *Registry) {
		r.shell = shell
	}
}

// WithRenderer enables the render_report tool.
func WithRenderer(renderer Renderer) Option {
	return func(r *Registry) {
		r.renderer = renderer
	}
}

// WithClock replaces the time source used for transcript names.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry working in ws.
func NewRegistry(ws *workspace.Workspace, opts ...Option) *Registry {
	r := &Registry{
		ws:           ws,
		previewLimit: DefaultPreviewLimit,
		shellTimeout: DefaultShellTimeout,
		shell:        defaultShell,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) kinds() []Kind {
	kinds := []Kind{KindCreateFile, KindReplaceText, KindShellExec}
	if r.renderer != nil {
		kinds = append(kinds, KindRenderReport)
	}
	return kinds
}

// Specs returns the schemas of the available tools.
func (r *Registry) Specs() []*taskloop.ToolSpec {
	var specs []*taskloop.ToolSpec
	for _, k := range r.kinds() {
		specs = append(specs, specOf(k))
	}
	return specs
}

// Run executes a tool. Failures, including panics in a handler, are returned
// as errors so that the caller can pass them back to the model.
func (r *Registry) Run(ctx context.Context, name string, args map[string]any) (result map[string]any, err error) {
	kind := ParseKind(name)
	if kind == KindUnknown || (kind == KindRenderReport && r.renderer == nil) {
		return nil, goerr.Wrap(taskloop.ErrUnknownTool, "tool is not registered", goerr.V("name", name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = goerr.New(fmt.Sprintf("tool panicked: %v", rec), goerr.V("name", name))
		}
	}()

	if err := validateArgs(specOf(kind), args); err != nil {
		return nil, err
	}

	logger := ctxlog.From(ctx).With(slog.String("tool", name))
	logger.Debug("run tool", slog.Any("args", args))

	switch kind {
	case KindCreateFile:
		result, err = r.createFile(args)
	case KindReplaceText:
		result, err = r.replaceText(args)
	case KindShellExec:
		result, err = r.execShell(ctx, args)
	case KindRenderReport:
		result, err = r.renderReport(args)
	}

	if err != nil {
		logger.Debug("tool failed", slog.Any("error", err))
	}
	return result, err
}
