// Package dispatch consumes inbound events from the bus and fans them
// out to the command router or the heavy-content pipeline.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sinkbot/internal/bus"
	"sinkbot/internal/command"
	"sinkbot/internal/domain"
	"sinkbot/internal/metrics"
	"sinkbot/internal/pipeline"
)

const defaultMaxConcurrentEvents = 16

type Config struct {
	Bus      *bus.InMemoryBus
	Router   *command.Router
	Pipeline *pipeline.Pipeline
	Platform domain.Platform
	Logger   *slog.Logger
	// MaxConcurrentEvents bounds how many events are handled at once.
	// Events for the same conversation are still unordered beyond what
	// the platform guarantees per webhook call.
	MaxConcurrentEvents int
}

// Dispatcher routes each event to its handler. Light events (text,
// sticker, location, membership) are answered inline; image, audio and
// video hand off to the pipeline.
type Dispatcher struct {
	bus      *bus.InMemoryBus
	router   *command.Router
	pipeline *pipeline.Pipeline
	platform domain.Platform
	logger   *slog.Logger
	sem      chan struct{}
	wg       sync.WaitGroup
}

func New(cfg Config) *Dispatcher {
	if cfg.MaxConcurrentEvents <= 0 {
		cfg.MaxConcurrentEvents = defaultMaxConcurrentEvents
	}
	return &Dispatcher{
		bus:      cfg.Bus,
		router:   cfg.Router,
		pipeline: cfg.Pipeline,
		platform: cfg.Platform,
		logger:   cfg.Logger,
		sem:      make(chan struct{}, cfg.MaxConcurrentEvents),
	}
}

// Run consumes the bus until the context is cancelled or the bus is
// closed, then waits for in-flight handlers to finish.
func (d *Dispatcher) Run(ctx context.Context) {
	events := d.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return
		case ev, ok := <-events:
			if !ok {
				d.wg.Wait()
				return
			}
			d.sem <- struct{}{}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				defer func() { <-d.sem }()
				defer func() {
					if r := recover(); r != nil {
						d.logger.Error("event handler panicked", "panic", r)
					}
				}()
				d.Handle(ctx, ev)
			}()
		}
	}
}

// Handle processes a single event. Errors are logged and absorbed: one
// bad event never affects another.
func (d *Dispatcher) Handle(ctx context.Context, ev domain.Event) {
	metrics.EventsTotal.Inc()
	metrics.EventsByKind(payloadKind(ev.Payload)).Inc()
	metrics.EventsInFlight.Inc()
	defer metrics.EventsInFlight.Dec()

	var err error
	switch p := ev.Payload.(type) {
	case domain.TextPayload:
		err = d.handleText(ctx, ev, p)

	case domain.StickerPayload:
		// Echo the sticker back untouched.
		err = d.execute(ctx, ev.ReplyToken, domain.Plan{Messages: []domain.Message{
			domain.StickerMessage{PackageID: p.PackageID, StickerID: p.StickerID},
		}})

	case domain.LocationPayload:
		err = d.execute(ctx, ev.ReplyToken, domain.Plan{Messages: []domain.Message{
			domain.LocationMessage{
				Title:     p.Title,
				Address:   p.Address,
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
			},
		}})

	case domain.ImagePayload:
		err = d.pipeline.Handle(ctx, ev.ReplyToken, p.ID, pipeline.KindImage)
	case domain.AudioPayload:
		err = d.pipeline.Handle(ctx, ev.ReplyToken, p.ID, pipeline.KindAudio)
	case domain.VideoPayload:
		err = d.pipeline.Handle(ctx, ev.ReplyToken, p.ID, pipeline.KindVideo)

	case domain.FollowPayload:
		err = d.execute(ctx, ev.ReplyToken, domain.Plan{Messages: []domain.Message{
			domain.TextMessage{Text: `Write "help" for a list of available commands`},
		}})

	case domain.JoinPayload:
		err = d.execute(ctx, ev.ReplyToken, domain.Plan{Messages: []domain.Message{
			domain.TextMessage{Text: `Write "!help" for a list of available commands`},
		}})

	case domain.UnfollowPayload:
		d.logger.Info("unfollowed", "user_id", domain.SenderID(ev.Source))
	case domain.PostbackPayload:
		d.logger.Info("postback received", "data", p.Data)
	case domain.BeaconPayload:
		d.logger.Info("beacon event", "hwid", p.HWID, "type", p.Type)
	case domain.OtherPayload:
		d.logger.Debug("unhandled event kind", "kind", p.Kind)
	default:
		d.logger.Debug("event without payload dropped")
	}

	if err != nil {
		d.logger.Error("event handling failed", "err", err)
	}
}

func payloadKind(p domain.Payload) string {
	switch p.(type) {
	case domain.TextPayload:
		return "text"
	case domain.StickerPayload:
		return "sticker"
	case domain.LocationPayload:
		return "location"
	case domain.ImagePayload:
		return "image"
	case domain.AudioPayload:
		return "audio"
	case domain.VideoPayload:
		return "video"
	case domain.FollowPayload:
		return "follow"
	case domain.UnfollowPayload:
		return "unfollow"
	case domain.JoinPayload:
		return "join"
	case domain.PostbackPayload:
		return "postback"
	case domain.BeaconPayload:
		return "beacon"
	case domain.OtherPayload:
		return "other"
	}
	return "none"
}

func (d *Dispatcher) handleText(ctx context.Context, ev domain.Event, p domain.TextPayload) error {
	plan, err := d.router.Route(ctx, p.Text, ev.Source, ev.ReplyToken)
	if err != nil {
		return err
	}
	return d.execute(ctx, ev.ReplyToken, plan)
}

// execute sends all of a plan's messages in one reply call, then runs
// its platform actions. The reply happens first so a leave action never
// invalidates the token before the farewell is delivered.
func (d *Dispatcher) execute(ctx context.Context, replyToken string, plan domain.Plan) error {
	if plan.Empty() {
		return nil
	}

	if len(plan.Messages) > 0 {
		start := time.Now()
		err := d.platform.Reply(ctx, replyToken, plan.Messages)
		metrics.ReplyLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ReplyErrors.Inc()
			return err
		}
		metrics.RepliesTotal.Inc()
	}

	for _, action := range plan.Actions {
		var err error
		switch a := action.(type) {
		case domain.LeaveGroup:
			err = d.platform.LeaveGroup(ctx, a.GroupID)
		case domain.LeaveRoom:
			err = d.platform.LeaveRoom(ctx, a.RoomID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
