// Package pipeline fetches heavy content (image/audio/video) for an
// event, persists it, derives a preview where the platform needs one, and
// replies with a message referencing the stored artifacts.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"sinkbot/internal/domain"
	"sinkbot/internal/metrics"
	"sinkbot/internal/transform"
)

const (
	defaultMaxInFlight = 4
	resizeGeometry     = "240x"

	// The platform requires a duration for audio messages; the actual
	// length of the fetched clip is not known without probing it.
	audioDurationMillis = 100
)

// Kind is the heavy-content variant being handled.
type Kind int

const (
	KindImage Kind = iota
	KindAudio
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	}
	return "unknown"
}

// ext returns the storage extension for the variant.
func (k Kind) ext() string {
	if k == KindImage {
		return "jpg"
	}
	return "mp4"
}

// ContentStore persists fetched streams and reserves names for derived
// artifacts.
type ContentStore interface {
	Save(ctx context.Context, ext string, r io.Reader) (domain.DownloadedContent, error)
	Allocate(ctx context.Context, ext string) (domain.DownloadedContent, error)
}

// Transformer derives preview artifacts from stored blobs.
type Transformer interface {
	Resize(ctx context.Context, in, out, geometry string) transform.Result
	ExtractFrame(ctx context.Context, in, out string) transform.Result
}

type Config struct {
	Platform    domain.Platform
	Store       ContentStore
	Runner      Transformer
	Logger      *slog.Logger
	MaxInFlight int // concurrent pipelines; bounds process-spawn and disk pressure
}

// Pipeline handles one heavy-content event at a time per unit of work.
// The transform step blocks the unit for the duration of the external
// process; MaxInFlight bounds how many run at once.
type Pipeline struct {
	platform domain.Platform
	store    ContentStore
	runner   Transformer
	logger   *slog.Logger
	sem      chan struct{}
}

func New(cfg Config) *Pipeline {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxInFlight
	}
	return &Pipeline{
		platform: cfg.Platform,
		store:    cfg.Store,
		runner:   cfg.Runner,
		logger:   cfg.Logger,
		sem:      make(chan struct{}, cfg.MaxInFlight),
	}
}

// Handle runs the full pipeline for one event: fetch, store, transform,
// reply. A fetch failure produces a best-effort text reply and aborts; a
// storage or transform failure aborts without a reply. Failures never
// affect other in-flight events.
func (p *Pipeline) Handle(ctx context.Context, replyToken, messageID string, kind Kind) error {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	start := time.Now()
	defer func() {
		metrics.PipelineLatency.Observe(time.Since(start).Seconds())
	}()

	body, err := p.platform.GetContent(ctx, messageID)
	if err != nil {
		p.logger.Error("content fetch failed", "message_id", messageID, "kind", kind.String(), "err", err)
		p.replyText(ctx, replyToken, "Cannot get image: "+err.Error())
		return &domain.TransportError{Op: "get content " + messageID, Err: err}
	}
	defer body.Close()

	stored, err := p.store.Save(ctx, kind.ext(), body)
	if err != nil {
		p.logger.Error("content store failed", "message_id", messageID, "err", err)
		return err
	}

	switch kind {
	case KindImage:
		preview, err := p.store.Allocate(ctx, "jpg")
		if err != nil {
			return err
		}
		res := p.runner.Resize(ctx, stored.Path, preview.Path, resizeGeometry)
		if !res.OK() {
			metrics.TransformFailures.Inc()
			p.logger.Error("preview resize failed, no reply sent", "message_id", messageID)
			return res.AsError("resize")
		}
		return p.reply(ctx, replyToken, domain.ImageMessage{
			OriginalURL: stored.URI,
			PreviewURL:  preview.URI,
		})

	case KindAudio:
		return p.reply(ctx, replyToken, domain.AudioMessage{
			URL:            stored.URI,
			DurationMillis: audioDurationMillis,
		})

	case KindVideo:
		preview, err := p.store.Allocate(ctx, "jpg")
		if err != nil {
			return err
		}
		res := p.runner.ExtractFrame(ctx, stored.Path, preview.Path)
		if !res.OK() {
			metrics.TransformFailures.Inc()
			p.logger.Error("frame extraction failed, no reply sent", "message_id", messageID)
			return res.AsError("extract-frame")
		}
		return p.reply(ctx, replyToken, domain.VideoMessage{
			OriginalURL: stored.URI,
			PreviewURL:  preview.URI,
		})
	}

	return domain.ErrInvalidArgument
}

func (p *Pipeline) reply(ctx context.Context, replyToken string, msg domain.Message) error {
	if err := p.platform.Reply(ctx, replyToken, []domain.Message{msg}); err != nil {
		p.logger.Error("reply failed", "err", err)
		return err
	}
	metrics.RepliesTotal.Inc()
	return nil
}

// replyText is best-effort: a failure to deliver the error text is logged
// and otherwise ignored.
func (p *Pipeline) replyText(ctx context.Context, replyToken, text string) {
	if replyToken == "" {
		return
	}
	if err := p.platform.Reply(ctx, replyToken, []domain.Message{domain.TextMessage{Text: text}}); err != nil {
		p.logger.Error("best-effort error reply failed", "err", err)
	}
}
