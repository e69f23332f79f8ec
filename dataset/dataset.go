// Package dataset downloads a dataset from the Hugging Face Hub as a Parquet
// file into the workspace before a run starts.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop/workspace"
)

const (
	DefaultBaseURL = "https://datasets-server.huggingface.co"
	DefaultSplit   = "train"
	DefaultOutput  = "dataset.parquet"

	maxErrorBodyBytes = 2048
)

var (
	ErrSplitNotFound = errors.New("no parquet file for the requested split")
	ErrHTTPStatus    = errors.New("unexpected HTTP status")
)

// ParquetFile is an entry of the datasets-server /parquet listing.
type ParquetFile struct {
	Dataset  string `json:"dataset"`
	Config   string `json:"config"`
	Split    string `json:"split"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type parquetListing struct {
	ParquetFiles []ParquetFile `json:"parquet_files"`
}

// Loader fetches one split of a dataset. It satisfies taskloop.InputLoader.
type Loader struct {
	id      string
	ws      *workspace.Workspace
	baseURL string
	client  *http.Client
	split   string
	config  string
	output  string
	token   string
}

// Option configures a Loader.
type Option func(*Loader)

func WithBaseURL(u string) Option {
	return func(l *Loader) {
		l.baseURL = u
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		l.client = c
	}
}

func WithSplit(split string) Option {
	return func(l *Loader) {
		l.split = split
	}
}

// WithConfig selects the dataset configuration. The first configuration that
// has the split is used when empty.
func WithConfig(config string) Option {
	return func(l *Loader) {
		l.config = config
	}
}

// WithOutput sets the destination path relative to the workspace.
func WithOutput(path string) Option {
	return func(l *Loader) {
		l.output = path
	}
}

// WithToken sets a Hugging Face access token for gated datasets.
func WithToken(token string) Option {
	return func(l *Loader) {
		l.token = token
	}
}

// New creates a Loader for the dataset id, e.g. "riyadahmadov/StudentPerformance".
func New(id string, ws *workspace.Workspace, opts ...Option) *Loader {
	l := &Loader{
		id:      id,
		ws:      ws,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
		split:   DefaultSplit,
		output:  DefaultOutput,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load downloads the split and returns its path relative to the workspace.
func (l *Loader) Load(ctx context.Context) (string, error) {
	files, err := l.List(ctx)
	if err != nil {
		return "", err
	}

	file, err := l.pick(files)
	if err != nil {
		return "", err
	}

	dst, err := l.ws.Resolve(l.output)
	if err != nil {
		return "", err
	}

	ctxlog.From(ctx).Info("downloading dataset",
		slog.String("dataset", l.id),
		slog.String("config", file.Config),
		slog.String("split", file.Split),
		slog.String("output", l.output),
	)

	if err := l.download(ctx, file.URL, dst); err != nil {
		return "", err
	}
	return l.ws.Rel(dst)
}

// List returns the Parquet files of the dataset.
func (l *Loader) List(ctx context.Context) ([]ParquetFile, error) {
	endpoint := l.baseURL + "/parquet?" + url.Values{"dataset": {l.id}}.Encode()
	resp, err := l.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var listing parquetListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, goerr.Wrap(err, "failed to decode parquet listing", goerr.V("dataset", l.id))
	}
	return listing.ParquetFiles, nil
}

// pick returns the first file of the split, preferring the configured config.
// A split sharded into several files uses the first shard.
func (l *Loader) pick(files []ParquetFile) (*ParquetFile, error) {
	for i := range files {
		f := &files[i]
		if f.Split != l.split {
			continue
		}
		if l.config != "" && f.Config != l.config {
			continue
		}
		return f, nil
	}
	return nil, goerr.Wrap(ErrSplitNotFound, "split not found",
		goerr.V("dataset", l.id),
		goerr.V("split", l.split),
		goerr.V("config", l.config),
	)
}

func (l *Loader) download(ctx context.Context, src, dst string) error {
	resp, err := l.get(ctx, src)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return goerr.Wrap(err, "failed to create output directory", goerr.V("path", dst))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary file", goerr.V("path", dst))
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to download dataset", goerr.V("url", src))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temporary file", goerr.V("path", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return goerr.Wrap(err, "failed to move dataset into place", goerr.V("path", dst))
	}
	return nil
}

func (l *Loader) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", target))
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request", goerr.V("url", target))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, goerr.Wrap(ErrHTTPStatus, resp.Status,
			goerr.V("url", target),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}
	return resp, nil
}
