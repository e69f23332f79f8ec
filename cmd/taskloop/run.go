package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
	"github.com/m-mizutani/taskloop/dataset"
	"github.com/m-mizutani/taskloop/report"
	"github.com/m-mizutani/taskloop/tool"
	"github.com/m-mizutani/taskloop/trace"
	traceLogger "github.com/m-mizutani/taskloop/trace/logger"
	traceOtel "github.com/m-mizutani/taskloop/trace/otel"
	"github.com/m-mizutani/taskloop/workspace"
	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a task to completion and write the report",
		ArgsUsage: "<task>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "task",
				Sources: cli.EnvVars("TASKLOOP_TASK"),
				Usage:   "Task description (the first argument is used when empty)",
			},
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Value:   "./workspace",
				Sources: cli.EnvVars("TASKLOOP_WORKSPACE"),
				Usage:   "Directory that confines every file the tools touch",
			},
			&cli.StringFlag{
				Name:    "provider",
				Value:   "openai",
				Sources: cli.EnvVars("TASKLOOP_PROVIDER"),
				Usage:   "LLM provider (openai, claude, gemini)",
			},
			&cli.StringFlag{
				Name:    "model",
				Sources: cli.EnvVars("TASKLOOP_MODEL"),
				Usage:   "Model name (provider default when empty)",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Sources: cli.EnvVars("TASKLOOP_API_KEY"),
				Usage:   "API key of the provider",
			},
			&cli.StringFlag{
				Name:    "base-url",
				Sources: cli.EnvVars("TASKLOOP_BASE_URL"),
				Usage:   "API endpoint, e.g. http://localhost:8000/v1 for vLLM",
			},
			&cli.StringFlag{
				Name:    "gcp-project",
				Sources: cli.EnvVars("TASKLOOP_GCP_PROJECT"),
				Usage:   "Google Cloud project for Gemini on Vertex AI",
			},
			&cli.StringFlag{
				Name:    "gcp-location",
				Value:   "us-central1",
				Sources: cli.EnvVars("TASKLOOP_GCP_LOCATION"),
				Usage:   "Google Cloud location for Gemini on Vertex AI",
			},
			&cli.FloatFlag{
				Name:    "temperature",
				Sources: cli.EnvVars("TASKLOOP_TEMPERATURE"),
				Usage:   "Sampling temperature (provider default when 0)",
			},
			&cli.IntFlag{
				Name:    "max-tokens",
				Sources: cli.EnvVars("TASKLOOP_MAX_TOKENS"),
				Usage:   "Maximum tokens per reply",
			},
			&cli.StringFlag{
				Name:    "dataset",
				Sources: cli.EnvVars("TASKLOOP_DATASET"),
				Usage:   "Hugging Face dataset id downloaded into the workspace before planning",
			},
			&cli.StringFlag{
				Name:    "dataset-split",
				Value:   dataset.DefaultSplit,
				Sources: cli.EnvVars("TASKLOOP_DATASET_SPLIT"),
				Usage:   "Dataset split",
			},
			&cli.StringFlag{
				Name:    "hf-token",
				Sources: cli.EnvVars("TASKLOOP_HF_TOKEN", "HF_TOKEN"),
				Usage:   "Hugging Face token for gated datasets",
			},
			&cli.StringFlag{
				Name:    "artifact-ext",
				Value:   taskloop.DefaultArtifactExt,
				Sources: cli.EnvVars("TASKLOOP_ARTIFACT_EXT"),
				Usage:   "Extension of the report artifact",
			},
			&cli.StringFlag{
				Name:    "font",
				Sources: cli.EnvVars("TASKLOOP_FONT"),
				Usage:   "UTF-8 TrueType font for the rendered report",
			},
			&cli.IntFlag{
				Name:    "max-steps",
				Value:   taskloop.DefaultMaxSteps,
				Sources: cli.EnvVars("TASKLOOP_MAX_STEPS"),
				Usage:   "Maximum number of executed steps",
			},
			&cli.IntFlag{
				Name:    "report-rounds",
				Value:   taskloop.DefaultReportRounds,
				Sources: cli.EnvVars("TASKLOOP_REPORT_ROUNDS"),
				Usage:   "Maximum model rounds of the report phase",
			},
			&cli.DurationFlag{
				Name:    "shell-timeout",
				Value:   10 * time.Minute,
				Sources: cli.EnvVars("TASKLOOP_SHELL_TIMEOUT"),
				Usage:   "Timeout of each shell command",
			},
			&cli.StringFlag{
				Name:    "trace-dir",
				Sources: cli.EnvVars("TASKLOOP_TRACE_DIR"),
				Usage:   "Directory to save the run trace as JSON",
			},
			&cli.BoolFlag{
				Name:    "otel",
				Sources: cli.EnvVars("TASKLOOP_OTEL"),
				Usage:   "Emit OpenTelemetry spans through the global tracer provider",
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Sources: cli.EnvVars("TASKLOOP_LOG_FORMAT"),
				Usage:   "Log format (text, json)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("TASKLOOP_LOG_LEVEL"),
				Usage:   "Log level (debug, info, warn, error)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			task := cmd.String("task")
			if task == "" {
				task = strings.Join(cmd.Args().Slice(), " ")
			}
			if strings.TrimSpace(task) == "" {
				return goerr.New("task is required")
			}

			logger, err := newLogger(os.Stderr, cmd.String("log-format"), cmd.String("log-level"))
			if err != nil {
				return err
			}
			ctx = ctxlog.With(ctx, logger)

			client, err := newLLMClient(ctx, llmConfig{
				provider:    cmd.String("provider"),
				model:       cmd.String("model"),
				apiKey:      cmd.String("api-key"),
				baseURL:     cmd.String("base-url"),
				gcpProject:  cmd.String("gcp-project"),
				gcpLocation: cmd.String("gcp-location"),
				temperature: cmd.Float("temperature"),
				maxTokens:   int(cmd.Int("max-tokens")),
			})
			if err != nil {
				return err
			}

			ws, err := workspace.New(cmd.String("workspace"))
			if err != nil {
				return err
			}

			var renderOpts []report.Option
			if font := cmd.String("font"); font != "" {
				renderOpts = append(renderOpts, report.WithUTF8Font(font))
			}
			registry := tool.NewRegistry(ws,
				tool.WithRenderer(report.New(renderOpts...)),
				tool.WithShellTimeout(cmd.Duration("shell-timeout")),
			)

			opts := []taskloop.Option{
				taskloop.WithLogger(logger),
				taskloop.WithArtifactExt(cmd.String("artifact-ext")),
				taskloop.WithMaxSteps(int(cmd.Int("max-steps"))),
				taskloop.WithReportRounds(int(cmd.Int("report-rounds"))),
				taskloop.WithTrace(newTraceHandler(cmd, task)),
			}

			if id := cmd.String("dataset"); id != "" {
				loader := dataset.New(id, ws,
					dataset.WithSplit(cmd.String("dataset-split")),
					dataset.WithToken(cmd.String("hf-token")),
				)
				opts = append(opts, taskloop.WithInputLoader(loader))
			}

			result, err := taskloop.New(client, registry, ws, opts...).Run(ctx, task)
			if err != nil {
				return err
			}

			return printResult(os.Stdout, result)
		},
	}
}

func newTraceHandler(cmd *cli.Command, task string) trace.Handler {
	handlers := []trace.Handler{
		traceLogger.New(traceLogger.WithEvents(
			traceLogger.Run,
			traceLogger.Phase,
			traceLogger.ToolExec,
			traceLogger.CustomEvent,
		)),
	}

	if dir := cmd.String("trace-dir"); dir != "" {
		handlers = append(handlers, trace.New(
			trace.WithRepository(trace.NewFileRepository(dir)),
			trace.WithMetadata(trace.TraceMetadata{
				Provider: cmd.String("provider"),
				Model:    cmd.String("model"),
				Task:     task,
			}),
		))
	}

	if cmd.Bool("otel") {
		handlers = append(handlers, traceOtel.New())
	}

	return trace.Multi(handlers...)
}

func printResult(w io.Writer, result *taskloop.Result) error {
	if _, err := fmt.Fprintln(w, result.ReportText); err != nil {
		return goerr.Wrap(err, "failed to write report")
	}

	if result.ArtifactPath == "" {
		_, err := fmt.Fprintln(w, "\nNo report artifact was produced.")
		return err
	}
	_, err := fmt.Fprintf(w, "\nReport: %s\n", result.ArtifactPath)
	return err
}
