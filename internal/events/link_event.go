package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names a link lifecycle transition.
type Type string

const (
	TypeLinkCreated Type = "link.created"
	TypeLinkClicked Type = "link.clicked"
	TypeLinkDeleted Type = "link.deleted"
	TypeLinkExpired Type = "link.expired"
)

// LinkEvent is emitted by the link registry after a state change has been
// committed. Consumers never feed it back into the registry.
type LinkEvent struct {
	EventID    string    `json:"eventId"`
	Type       Type      `json:"type"`
	Code       string    `json:"code"`
	LinkID     string    `json:"linkId"`
	Owner      string    `json:"owner"`
	Clicks     int       `json:"clicks"`
	ClickLimit int       `json:"clickLimit"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewLinkEvent(t Type, code string, linkID, owner uuid.UUID, clicks, clickLimit int, at time.Time) LinkEvent {
	return LinkEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		Code:       code,
		LinkID:     linkID.String(),
		Owner:      owner.String(),
		Clicks:     clicks,
		ClickLimit: clickLimit,
		OccurredAt: at.UTC(),
	}
}
