package links

import (
	"time"

	"github.com/google/uuid"
)

type Link struct {
	ID         uuid.UUID
	URL        string
	Code       string
	Owner      uuid.UUID
	ClickLimit int
	Clicks     int
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Active     bool
}

// check returns the reason the link cannot serve a redirect at now, in
// precedence order expired, quota, inactive.
func (l *Link) check(now time.Time) error {
	if l.expiredAt(now) {
		return ErrExpired
	}
	if l.Clicks >= l.ClickLimit {
		return ErrQuotaExceeded
	}
	if !l.Active {
		return ErrInactive
	}
	return nil
}

func (l *Link) expiredAt(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Stats is a point-in-time descriptor of a link. Valid is derived when the
// descriptor is built and never stored.
type Stats struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	Code       string    `json:"code"`
	Owner      uuid.UUID `json:"owner"`
	Clicks     int       `json:"clicks"`
	ClickLimit int       `json:"clickLimit"`
	Remaining  int       `json:"remaining"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Valid      bool      `json:"valid"`
}

func (l *Link) stats(now time.Time) Stats {
	return Stats{
		ID:         l.ID,
		URL:        l.URL,
		Code:       l.Code,
		Owner:      l.Owner,
		Clicks:     l.Clicks,
		ClickLimit: l.ClickLimit,
		Remaining:  max(l.ClickLimit-l.Clicks, 0),
		CreatedAt:  l.CreatedAt,
		ExpiresAt:  l.ExpiresAt,
		Valid:      l.check(now) == nil,
	}
}

type CreateInput struct {
	URL        string
	Owner      uuid.UUID
	ClickLimit int
	TTL        time.Duration
}
