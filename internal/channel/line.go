// Package channel connects the bot core to the LINE Messaging API: it
// terminates the webhook, converts platform payloads to and from the
// domain model, and performs outbound API calls.
package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"sinkbot/internal/domain"
)

// Line is the LINE Messaging API client. It implements domain.Platform.
type Line struct {
	api    *messaging_api.MessagingApiAPI
	blob   *messaging_api.MessagingApiBlobAPI
	secret string
	logger *slog.Logger
}

func NewLine(channelSecret, channelToken string, logger *slog.Logger) (*Line, error) {
	if channelSecret == "" || channelToken == "" {
		return nil, fmt.Errorf("channel secret and token are required: %w", domain.ErrInvalidArgument)
	}
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("messaging api client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("blob api client: %w", err)
	}
	return &Line{api: api, blob: blob, secret: channelSecret, logger: logger}, nil
}

// Reply sends all messages for one event in a single call. The reply
// token is single-use, so callers must batch.
func (l *Line) Reply(_ context.Context, replyToken string, messages []domain.Message) error {
	if replyToken == "" {
		return fmt.Errorf("reply token must not be empty: %w", domain.ErrInvalidArgument)
	}
	out := make([]messaging_api.MessageInterface, 0, len(messages))
	for _, m := range messages {
		lm, err := toLineMessage(m)
		if err != nil {
			return err
		}
		out = append(out, lm)
	}
	if _, err := l.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   out,
	}); err != nil {
		return &domain.TransportError{Op: "reply", Err: err}
	}
	return nil
}

func (l *Line) GetContent(_ context.Context, messageID string) (io.ReadCloser, error) {
	resp, err := l.blob.GetMessageContent(messageID)
	if err != nil {
		return nil, &domain.TransportError{Op: "get message content", Err: err}
	}
	return resp.Body, nil
}

func (l *Line) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	p, err := l.api.GetProfile(userID)
	if err != nil {
		return nil, &domain.TransportError{Op: "get profile", Err: err}
	}
	return &domain.Profile{
		DisplayName:   p.DisplayName,
		StatusMessage: p.StatusMessage,
	}, nil
}

func (l *Line) LeaveGroup(_ context.Context, groupID string) error {
	if _, err := l.api.LeaveGroup(groupID); err != nil {
		return &domain.TransportError{Op: "leave group", Err: err}
	}
	return nil
}

func (l *Line) LeaveRoom(_ context.Context, roomID string) error {
	if _, err := l.api.LeaveRoom(roomID); err != nil {
		return &domain.TransportError{Op: "leave room", Err: err}
	}
	return nil
}

// toDomainEvent converts one webhook event. The second return is false
// for events the bot has no domain representation for at all.
func toDomainEvent(ev webhook.EventInterface) (domain.Event, bool) {
	switch e := ev.(type) {
	case webhook.MessageEvent:
		out := domain.Event{
			ReplyToken: e.ReplyToken,
			Source:     toDomainSource(e.Source),
			Timestamp:  time.UnixMilli(e.Timestamp),
		}
		switch m := e.Message.(type) {
		case webhook.TextMessageContent:
			out.Payload = domain.TextPayload{ID: m.Id, Text: m.Text}
		case webhook.StickerMessageContent:
			out.Payload = domain.StickerPayload{PackageID: m.PackageId, StickerID: m.StickerId}
		case webhook.LocationMessageContent:
			out.Payload = domain.LocationPayload{
				Title:     m.Title,
				Address:   m.Address,
				Latitude:  m.Latitude,
				Longitude: m.Longitude,
			}
		case webhook.ImageMessageContent:
			out.Payload = domain.ImagePayload{ID: m.Id}
		case webhook.AudioMessageContent:
			out.Payload = domain.AudioPayload{ID: m.Id, Duration: m.Duration}
		case webhook.VideoMessageContent:
			out.Payload = domain.VideoPayload{ID: m.Id}
		default:
			out.Payload = domain.OtherPayload{Kind: fmt.Sprintf("%T", e.Message)}
		}
		return out, true

	case webhook.FollowEvent:
		return domain.Event{
			ReplyToken: e.ReplyToken,
			Source:     toDomainSource(e.Source),
			Timestamp:  time.UnixMilli(e.Timestamp),
			Payload:    domain.FollowPayload{},
		}, true

	case webhook.UnfollowEvent:
		return domain.Event{
			Source:    toDomainSource(e.Source),
			Timestamp: time.UnixMilli(e.Timestamp),
			Payload:   domain.UnfollowPayload{},
		}, true

	case webhook.JoinEvent:
		return domain.Event{
			ReplyToken: e.ReplyToken,
			Source:     toDomainSource(e.Source),
			Timestamp:  time.UnixMilli(e.Timestamp),
			Payload:    domain.JoinPayload{},
		}, true

	case webhook.LeaveEvent:
		return domain.Event{
			Source:    toDomainSource(e.Source),
			Timestamp: time.UnixMilli(e.Timestamp),
			Payload:   domain.OtherPayload{Kind: "leave"},
		}, true

	case webhook.PostbackEvent:
		out := domain.Event{
			ReplyToken: e.ReplyToken,
			Source:     toDomainSource(e.Source),
			Timestamp:  time.UnixMilli(e.Timestamp),
		}
		if e.Postback != nil {
			out.Payload = domain.PostbackPayload{Data: e.Postback.Data}
		} else {
			out.Payload = domain.PostbackPayload{}
		}
		return out, true

	case webhook.BeaconEvent:
		out := domain.Event{
			ReplyToken: e.ReplyToken,
			Source:     toDomainSource(e.Source),
			Timestamp:  time.UnixMilli(e.Timestamp),
		}
		if e.Beacon != nil {
			out.Payload = domain.BeaconPayload{HWID: e.Beacon.Hwid, Type: string(e.Beacon.Type)}
		} else {
			out.Payload = domain.BeaconPayload{}
		}
		return out, true
	}

	return domain.Event{}, false
}

func toDomainSource(s webhook.SourceInterface) domain.Source {
	switch src := s.(type) {
	case webhook.UserSource:
		return domain.UserSource{UserID: src.UserId}
	case webhook.GroupSource:
		return domain.GroupSource{GroupID: src.GroupId, UserID: src.UserId}
	case webhook.RoomSource:
		return domain.RoomSource{RoomID: src.RoomId, UserID: src.UserId}
	}
	return nil
}

// toLineMessage converts an outbound domain message to its wire type.
// An unknown message or nested action type is a programming error and
// returns ErrInvalidArgument.
func toLineMessage(m domain.Message) (messaging_api.MessageInterface, error) {
	switch msg := m.(type) {
	case domain.TextMessage:
		return messaging_api.TextMessage{Text: msg.Text}, nil

	case domain.StickerMessage:
		return messaging_api.StickerMessage{
			PackageId: msg.PackageID,
			StickerId: msg.StickerID,
		}, nil

	case domain.ImageMessage:
		return messaging_api.ImageMessage{
			OriginalContentUrl: msg.OriginalURL,
			PreviewImageUrl:    msg.PreviewURL,
		}, nil

	case domain.AudioMessage:
		return messaging_api.AudioMessage{
			OriginalContentUrl: msg.URL,
			Duration:           msg.DurationMillis,
		}, nil

	case domain.VideoMessage:
		return messaging_api.VideoMessage{
			OriginalContentUrl: msg.OriginalURL,
			PreviewImageUrl:    msg.PreviewURL,
		}, nil

	case domain.LocationMessage:
		return messaging_api.LocationMessage{
			Title:     msg.Title,
			Address:   msg.Address,
			Latitude:  msg.Latitude,
			Longitude: msg.Longitude,
		}, nil

	case domain.TemplateMessage:
		tmpl, err := toLineTemplate(msg.Template)
		if err != nil {
			return nil, err
		}
		return messaging_api.TemplateMessage{
			AltText:  msg.AltText,
			Template: tmpl,
		}, nil

	case domain.ImagemapMessage:
		actions := make([]messaging_api.ImagemapActionInterface, 0, len(msg.Actions))
		for _, a := range msg.Actions {
			la, err := toLineImagemapAction(a)
			if err != nil {
				return nil, err
			}
			actions = append(actions, la)
		}
		return messaging_api.ImagemapMessage{
			BaseUrl: msg.BaseURL,
			AltText: msg.AltText,
			BaseSize: &messaging_api.ImagemapBaseSize{
				Width:  int32(msg.Width),
				Height: int32(msg.Height),
			},
			Actions: actions,
		}, nil
	}

	return nil, fmt.Errorf("unsupported message type %T: %w", m, domain.ErrInvalidArgument)
}

func toLineTemplate(t domain.Template) (messaging_api.TemplateInterface, error) {
	switch tmpl := t.(type) {
	case domain.ConfirmTemplate:
		actions, err := toLineActions(tmpl.Actions)
		if err != nil {
			return nil, err
		}
		return messaging_api.ConfirmTemplate{
			Text:    tmpl.Text,
			Actions: actions,
		}, nil

	case domain.ButtonsTemplate:
		actions, err := toLineActions(tmpl.Actions)
		if err != nil {
			return nil, err
		}
		return messaging_api.ButtonsTemplate{
			ThumbnailImageUrl: tmpl.ThumbnailURL,
			Title:             tmpl.Title,
			Text:              tmpl.Text,
			Actions:           actions,
		}, nil

	case domain.CarouselTemplate:
		columns := make([]messaging_api.CarouselColumn, 0, len(tmpl.Columns))
		for _, col := range tmpl.Columns {
			actions, err := toLineActions(col.Actions)
			if err != nil {
				return nil, err
			}
			columns = append(columns, messaging_api.CarouselColumn{
				ThumbnailImageUrl: col.ThumbnailURL,
				Title:             col.Title,
				Text:              col.Text,
				Actions:           actions,
			})
		}
		return messaging_api.CarouselTemplate{Columns: columns}, nil

	case domain.ImageCarouselTemplate:
		columns := make([]messaging_api.ImageCarouselColumn, 0, len(tmpl.Columns))
		for _, col := range tmpl.Columns {
			action, err := toLineAction(col.Action)
			if err != nil {
				return nil, err
			}
			columns = append(columns, messaging_api.ImageCarouselColumn{
				ImageUrl: col.ImageURL,
				Action:   action,
			})
		}
		return messaging_api.ImageCarouselTemplate{Columns: columns}, nil
	}

	return nil, fmt.Errorf("unsupported template type %T: %w", t, domain.ErrInvalidArgument)
}

func toLineActions(actions []domain.Action) ([]messaging_api.ActionInterface, error) {
	out := make([]messaging_api.ActionInterface, 0, len(actions))
	for _, a := range actions {
		la, err := toLineAction(a)
		if err != nil {
			return nil, err
		}
		out = append(out, la)
	}
	return out, nil
}

func toLineAction(a domain.Action) (messaging_api.ActionInterface, error) {
	switch action := a.(type) {
	case domain.MessageAction:
		return messaging_api.MessageAction{Label: action.Label, Text: action.Text}, nil
	case domain.URIAction:
		return messaging_api.UriAction{Label: action.Label, Uri: action.URI}, nil
	case domain.PostbackAction:
		return messaging_api.PostbackAction{
			Label:       action.Label,
			Data:        action.Data,
			DisplayText: action.DisplayText,
		}, nil
	case domain.DatetimePickerAction:
		mode, err := pickerMode(action.Mode)
		if err != nil {
			return nil, err
		}
		return messaging_api.DatetimePickerAction{
			Label:   action.Label,
			Data:    action.Data,
			Mode:    mode,
			Initial: action.Initial,
			Max:     action.Max,
			Min:     action.Min,
		}, nil
	}
	return nil, fmt.Errorf("unsupported action type %T: %w", a, domain.ErrInvalidArgument)
}

func pickerMode(mode string) (messaging_api.DatetimePickerActionMODE, error) {
	switch mode {
	case "date":
		return messaging_api.DatetimePickerActionMODE_DATE, nil
	case "time":
		return messaging_api.DatetimePickerActionMODE_TIME, nil
	case "datetime":
		return messaging_api.DatetimePickerActionMODE_DATETIME, nil
	}
	return "", fmt.Errorf("unsupported picker mode %q: %w", mode, domain.ErrInvalidArgument)
}

func toLineImagemapAction(a domain.ImagemapAction) (messaging_api.ImagemapActionInterface, error) {
	switch action := a.(type) {
	case domain.URIImagemapAction:
		return messaging_api.UriImagemapAction{
			LinkUri: action.URI,
			Area:    toImagemapArea(action.Area),
		}, nil
	case domain.MessageImagemapAction:
		return messaging_api.MessageImagemapAction{
			Text: action.Text,
			Area: toImagemapArea(action.Area),
		}, nil
	}
	return nil, fmt.Errorf("unsupported imagemap action type %T: %w", a, domain.ErrInvalidArgument)
}

func toImagemapArea(a domain.ImagemapArea) *messaging_api.ImagemapArea {
	return &messaging_api.ImagemapArea{
		X:      int32(a.X),
		Y:      int32(a.Y),
		Width:  int32(a.Width),
		Height: int32(a.Height),
	}
}
