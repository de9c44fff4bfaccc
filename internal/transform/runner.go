// Package transform invokes external media tools to derive preview
// artifacts from stored content. The two operations the bot needs are an
// image resize and a video frame extraction, both via ImageMagick's
// convert tool.
package transform

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"sinkbot/internal/domain"
)

const (
	defaultConvertPath = "convert"
	defaultTimeout     = 60 * time.Second
)

// Status classifies the outcome of one tool invocation.
type Status int

const (
	StatusOK Status = iota
	StatusToolFailed  // tool ran and exited non-zero
	StatusSpawnFailed // tool could not be started
)

// Result is the typed outcome of a tool run. Callers must check it before
// using any output file the tool was supposed to produce.
type Result struct {
	Status   Status
	ExitCode int
	Output   string // combined stdout/stderr, for diagnostics
	Err      error
}

// OK reports whether the tool ran to completion with exit code zero.
func (r Result) OK() bool { return r.Status == StatusOK }

// AsError converts a failed result into a TransformError, or nil.
func (r Result) AsError(tool string) error {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusToolFailed:
		return &domain.TransformError{Tool: tool, ExitCode: r.ExitCode, Err: r.Err}
	default:
		return &domain.TransformError{Tool: tool, ExitCode: -1, Err: r.Err}
	}
}

type Config struct {
	ConvertPath string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Runner executes external transform tools, blocking the calling pipeline
// for the duration of the process.
type Runner struct {
	convertPath string
	timeout     time.Duration
	logger      *slog.Logger
}

func NewRunner(cfg Config) *Runner {
	if cfg.ConvertPath == "" {
		cfg.ConvertPath = defaultConvertPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Runner{
		convertPath: cfg.ConvertPath,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Resize scales the input image to the given geometry (e.g. "240x") and
// writes the result to out.
func (r *Runner) Resize(ctx context.Context, in, out, geometry string) Result {
	return r.run(ctx, "-resize", geometry, in, out)
}

// ExtractFrame writes the first frame of the input video to out.
func (r *Runner) ExtractFrame(ctx context.Context, in, out string) Result {
	return r.run(ctx, in+"[0]", out)
}

func (r *Runner) run(ctx context.Context, args ...string) Result {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.convertPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.logger.Error("transform tool failed",
				"tool", r.convertPath,
				"args", args,
				"exit_code", exitErr.ExitCode(),
				"output", string(output),
			)
			return Result{Status: StatusToolFailed, ExitCode: exitErr.ExitCode(), Output: string(output), Err: err}
		}
		r.logger.Error("transform tool spawn failed", "tool", r.convertPath, "err", err)
		return Result{Status: StatusSpawnFailed, ExitCode: -1, Err: err}
	}

	r.logger.Info("transform completed", "tool", r.convertPath, "args", args)
	return Result{Status: StatusOK, Output: string(output)}
}
