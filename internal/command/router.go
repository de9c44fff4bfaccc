// Package command maps the literal text of an inbound message to a reply
// plan. Dispatch is exact string equality against a fixed table; anything
// else is silently ignored.
package command

import (
	"context"
	"fmt"
	"log/slog"

	"sinkbot/internal/domain"
)

const (
	maxTextRunes = 1000
	ellipsis     = "……"
)

// ProfileFetcher retrieves a user profile from the platform. The router
// awaits the fetch and only then builds the reply, so ordering is
// preserved without a completion callback.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

type Config struct {
	Profiles ProfileFetcher
	BaseURL  string // external base URL for static assets
	Logger   *slog.Logger
}

// Router resolves a text message against the command table.
type Router struct {
	profiles ProfileFetcher
	baseURL  string
	logger   *slog.Logger
	table    map[string]handler
}

type handler func(ctx context.Context, src domain.Source) (domain.Plan, error)

func New(cfg Config) *Router {
	r := &Router{
		profiles: cfg.Profiles,
		baseURL:  cfg.BaseURL,
		logger:   cfg.Logger,
	}
	r.table = map[string]handler{
		"__profile":        r.profileCmd,
		"__bye":            r.byeCmd,
		"__confirm":        r.confirmCmd,
		"__buttons":        r.buttonsCmd,
		"__carousel":       r.carouselCmd,
		"__image_carousel": r.imageCarouselCmd,
		"__imagemap":       r.imagemapCmd,
		"!kick":            r.kickCmd,
		"!drama":           r.dramaCmd,
		"!help":            r.bangHelpCmd,
		"help":             r.helpCmd,
	}
	return r
}

// Route looks the text up in the command table and returns the resulting
// plan. Unmatched text yields an empty plan with no error. A plan that
// would send messages with an empty reply token is a caller contract
// violation and returns ErrInvalidArgument.
func (r *Router) Route(ctx context.Context, text string, src domain.Source, replyToken string) (domain.Plan, error) {
	h, ok := r.table[text]
	if !ok {
		r.logger.Debug("unrecognized text ignored", "text_len", len(text))
		return domain.Plan{}, nil
	}

	plan, err := h(ctx, src)
	if err != nil {
		return domain.Plan{}, err
	}
	if len(plan.Messages) > 0 && replyToken == "" {
		return domain.Plan{}, fmt.Errorf("reply token must not be empty: %w", domain.ErrInvalidArgument)
	}
	return plan, nil
}

// truncate caps a text reply at 1000 runes: longer inputs keep the first
// 998 runes plus a two-rune ellipsis marker.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTextRunes {
		return s
	}
	return string(runes[:maxTextRunes-len([]rune(ellipsis))]) + ellipsis
}

func textPlan(texts ...string) domain.Plan {
	msgs := make([]domain.Message, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, domain.TextMessage{Text: truncate(t)})
	}
	return domain.Plan{Messages: msgs}
}

// leaveAction resolves the platform action that leaves the source's
// conversation, or nil for 1:1 chats.
func leaveAction(s domain.Source) domain.PlatformAction {
	switch src := s.(type) {
	case domain.GroupSource:
		return domain.LeaveGroup{GroupID: src.GroupID}
	case domain.RoomSource:
		return domain.LeaveRoom{RoomID: src.RoomID}
	}
	return nil
}

func (r *Router) profileCmd(ctx context.Context, src domain.Source) (domain.Plan, error) {
	userID := domain.SenderID(src)
	if userID == "" {
		return textPlan("Bot can't use profile API without user ID"), nil
	}
	profile, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		return textPlan(err.Error()), nil
	}
	return textPlan(
		"Display name: "+profile.DisplayName,
		"Status message: "+profile.StatusMessage,
	), nil
}

func (r *Router) byeCmd(_ context.Context, src domain.Source) (domain.Plan, error) {
	switch action := leaveAction(src).(type) {
	case domain.LeaveGroup:
		plan := textPlan("Leaving group")
		plan.Actions = append(plan.Actions, action)
		return plan, nil
	case domain.LeaveRoom:
		plan := textPlan("Leaving room")
		plan.Actions = append(plan.Actions, action)
		return plan, nil
	}
	return textPlan("Bot can't leave from 1:1 chat"), nil
}

func (r *Router) kickCmd(_ context.Context, src domain.Source) (domain.Plan, error) {
	// Leaves silently: no text reply in any context.
	if action := leaveAction(src); action != nil {
		return domain.Plan{Actions: []domain.PlatformAction{action}}, nil
	}
	return domain.Plan{}, nil
}

func (r *Router) dramaCmd(_ context.Context, src domain.Source) (domain.Plan, error) {
	switch action := leaveAction(src).(type) {
	case domain.LeaveGroup:
		plan := textPlan("All I ever asked was to be loved by someone!!!")
		plan.Actions = append(plan.Actions, action)
		return plan, nil
	case domain.LeaveRoom:
		plan := textPlan("This wasn't a real group anyway...")
		plan.Actions = append(plan.Actions, action)
		return plan, nil
	}
	return domain.Plan{}, nil
}

func (r *Router) bangHelpCmd(_ context.Context, src domain.Source) (domain.Plan, error) {
	if leaveAction(src) != nil {
		return textPlan("!help, !kick, !drama"), nil
	}
	return domain.Plan{}, nil
}

func (r *Router) helpCmd(_ context.Context, src domain.Source) (domain.Plan, error) {
	if leaveAction(src) != nil {
		return domain.Plan{}, nil
	}
	return textPlan("help, (that's all)"), nil
}
