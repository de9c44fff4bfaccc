package domain

import "time"

// Event is one inbound notification from the messaging platform. The
// ReplyToken is a single-use credential; it may be empty for events that
// cannot be replied to (unfollow, some synthetic events).
type Event struct {
	ReplyToken string
	Source     Source
	Payload    Payload
	Timestamp  time.Time
}

// Source identifies the conversation context an event originated from.
// The set is closed: user, group, or room. A nil Source means the event
// carries no usable context.
type Source interface {
	isSource()
}

type UserSource struct {
	UserID string
}

type GroupSource struct {
	GroupID string
	UserID  string
}

type RoomSource struct {
	RoomID string
	UserID string
}

func (UserSource) isSource()  {}
func (GroupSource) isSource() {}
func (RoomSource) isSource()  {}

// SenderID returns the user id behind a source, or "" when the platform
// did not include one.
func SenderID(s Source) string {
	switch src := s.(type) {
	case UserSource:
		return src.UserID
	case GroupSource:
		return src.UserID
	case RoomSource:
		return src.UserID
	}
	return ""
}

// Payload is the variant-specific content of an inbound event.
type Payload interface {
	isPayload()
}

type TextPayload struct {
	ID   string
	Text string
}

type StickerPayload struct {
	PackageID string
	StickerID string
}

type LocationPayload struct {
	Title     string
	Address   string
	Latitude  float64
	Longitude float64
}

// ImagePayload carries only the message-content id; the binary itself is
// fetched separately by the heavy-content pipeline.
type ImagePayload struct {
	ID string
}

type AudioPayload struct {
	ID       string
	Duration int64 // milliseconds, as reported by the platform
}

type VideoPayload struct {
	ID string
}

type FollowPayload struct{}

type UnfollowPayload struct{}

type JoinPayload struct{}

type PostbackPayload struct {
	Data string
}

type BeaconPayload struct {
	HWID string
	Type string
}

// OtherPayload covers event kinds the dispatcher does not act on.
type OtherPayload struct {
	Kind string
}

func (TextPayload) isPayload()     {}
func (StickerPayload) isPayload()  {}
func (LocationPayload) isPayload() {}
func (ImagePayload) isPayload()    {}
func (AudioPayload) isPayload()    {}
func (VideoPayload) isPayload()    {}
func (FollowPayload) isPayload()   {}
func (UnfollowPayload) isPayload() {}
func (JoinPayload) isPayload()     {}
func (PostbackPayload) isPayload() {}
func (BeaconPayload) isPayload()   {}
func (OtherPayload) isPayload()    {}
