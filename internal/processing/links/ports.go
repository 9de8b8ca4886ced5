package links

import (
	"errors"

	"github.com/IgorGrieder/linkquota/internal/events"
	"github.com/google/uuid"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("link not found")
	ErrExpired           = errors.New("link expired")
	ErrQuotaExceeded     = errors.New("link click quota exceeded")
	ErrInactive          = errors.New("link inactive")
	ErrForbidden         = errors.New("link belongs to another identity")
	ErrCapacityExhausted = errors.New("no free short code available")
)

// Identities is the slice of the identity registry the link registry needs.
// Both calls are made while the link registry holds its lock.
type Identities interface {
	RecordLink(owner, linkID uuid.UUID)
	ForgetLink(owner, linkID uuid.UUID)
	LinkIDs(owner uuid.UUID) []uuid.UUID
}

// EventSink receives lifecycle events after the registry lock is released.
// Publish must not block.
type EventSink interface {
	Publish(ev events.LinkEvent)
}

type CodeGenerator interface {
	Generate(seed Seed, attempt int) string
}

type nopSink struct{}

func (nopSink) Publish(events.LinkEvent) {}
