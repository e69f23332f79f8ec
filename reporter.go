package taskloop

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop/trace"
	"github.com/m-mizutani/taskloop/workspace"
)

const (
	// DefaultReportRounds bounds the model round trips of the report phase.
	DefaultReportRounds = 8

	// DefaultArtifactExt is the extension of the report artifact.
	DefaultArtifactExt = ".pdf"
)

// Reporter runs the report phase. It only finishes successfully when an
// artifact with the required extension, written during the run, exists in
// the workspace.
type Reporter struct {
	client LLMClient
	tools  ToolSet
	ws     *workspace.Workspace
	ext    string
	rounds int
}

// NewReporter creates a reporter. Zero values of ext and rounds fall back to
// the defaults.
func NewReporter(client LLMClient, tools ToolSet, ws *workspace.Workspace, ext string, rounds int) *Reporter {
	if ext == "" {
		ext = DefaultArtifactExt
	}
	if rounds <= 0 {
		rounds = DefaultReportRounds
	}
	return &Reporter{client: client, tools: tools, ws: ws, ext: ext, rounds: rounds}
}

// Report drives the model until it stops calling tools with the artifact in
// place. A reply that stops calling tools without the artifact gets a
// correction. When the rounds run out, the last text is returned with an
// empty ArtifactPath and no error.
func (x *Reporter) Report(ctx context.Context, run *RunState) (*Result, error) {
	logger := ctxlog.From(ctx)

	specs := x.tools.Specs()
	var (
		session Session
		seeded  int
	)
	defer func() {
		if session != nil {
			run.Messages.Append(sessionTranscript(session, seeded)...)
		}
	}()

	result := &Result{}
	inputs := []Input{SystemText(buildReportSystemPrompt(x.ext))}

	for round := 1; round <= x.rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "report interrupted", goerr.V("round", round))
		}

		if session == nil {
			s, err := x.client.NewSession(ctx,
				WithSessionHistory(run.Observations),
				WithSessionTools(specs...),
			)
			if err != nil {
				logger.Warn("failed to create reporter session", slog.Int("round", round), slog.Any("error", err))
				continue
			}
			session, seeded = s, run.Observations.Len()
		}

		resp, err := generate(ctx, session, specNames(specs), inputs...)
		if err != nil {
			// the session did not take the inputs, send them again
			logger.Warn("report request failed", slog.Int("round", round), slog.Any("error", err))
			continue
		}

		if text := StripReasoning(resp.Text()); text != "" {
			result.ReportText = text
		}

		if resp.HasFunctionCalls() {
			inputs = runToolCalls(ctx, x.tools, resp.FunctionCalls)
			continue
		}

		artifact, err := x.ws.Latest(x.ext, run.StartedAt)
		if err != nil {
			logger.Warn("failed to look up report artifact", slog.Int("round", round), slog.Any("error", err))
		}
		if artifact != nil {
			result.ArtifactPath = artifact.Path
			logger.Info("report artifact found",
				slog.Int("round", round),
				slog.String("path", artifact.RelPath),
			)
			return result, nil
		}

		logger.Warn("no report artifact, sending correction", slog.Int("round", round), slog.String("ext", x.ext))
		if h := trace.HandlerFrom(ctx); h != nil {
			h.AddEvent(ctx, "report_correction", map[string]any{"round": round, "ext": x.ext})
		}
		inputs = []Input{Text(buildReportCorrection(x.ext))}
	}

	// tools of the last round may have written the artifact
	artifact, err := x.ws.Latest(x.ext, run.StartedAt)
	if err != nil {
		logger.Warn("failed to look up report artifact", slog.Any("error", err))
	}
	if artifact != nil {
		result.ArtifactPath = artifact.Path
		return result, nil
	}

	logger.Warn("report rounds exhausted without artifact", slog.Int("rounds", x.rounds))
	return result, nil
}
