package domain

import (
	"context"
	"io"
)

// Platform is the messaging-platform client collaborator. Implementations
// perform the actual API calls; the core only constructs payloads.
// Reply must batch all messages for one event into a single call: the
// platform's reply token is single-use.
type Platform interface {
	Reply(ctx context.Context, replyToken string, messages []Message) error
	GetContent(ctx context.Context, messageID string) (io.ReadCloser, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	LeaveGroup(ctx context.Context, groupID string) error
	LeaveRoom(ctx context.Context, roomID string) error
}

// Profile is the subset of a user profile the bot uses.
type Profile struct {
	DisplayName   string
	StatusMessage string
}

// DownloadedContent is a stored binary blob: a local storage path plus the
// externally fetchable URL the web layer serves it under. The content
// store owns the blob until its retention sweep reclaims it.
type DownloadedContent struct {
	Path string
	URI  string
}

// Plan is the result of routing a text command: an ordered batch of reply
// messages plus zero or more side-effecting platform actions.
type Plan struct {
	Messages []Message
	Actions  []PlatformAction
}

// Empty reports whether the plan produces no reply and no action.
func (p Plan) Empty() bool {
	return len(p.Messages) == 0 && len(p.Actions) == 0
}

// PlatformAction is a side-effecting call against the platform.
type PlatformAction interface {
	isPlatformAction()
}

type LeaveGroup struct {
	GroupID string
}

type LeaveRoom struct {
	RoomID string
}

func (LeaveGroup) isPlatformAction() {}
func (LeaveRoom) isPlatformAction()  {}
