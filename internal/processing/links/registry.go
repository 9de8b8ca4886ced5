package links

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IgorGrieder/linkquota/internal/events"
	"github.com/IgorGrieder/linkquota/internal/infrastructure/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultMaxAttempts = 1000

type Options struct {
	Generator   CodeGenerator
	MaxAttempts int
	Events      EventSink
	Logger      *zap.Logger

	// Reserved lists codes that are never handed out, such as path segments
	// a front end routes elsewhere.
	Reserved []string
}

// Registry owns every link and the code index. A single mutex serializes all
// reads and writes, so the validity check and the click increment of a
// redirect happen as one step.
type Registry struct {
	mu    sync.Mutex
	links map[string]*Link
	byID  map[uuid.UUID]string

	identities  Identities
	gen         CodeGenerator
	maxAttempts int
	reserved    map[string]struct{}
	events      EventSink
	log         *zap.Logger
	now         func() time.Time
}

func NewRegistry(identities Identities, opts Options) *Registry {
	if opts.Generator == nil {
		opts.Generator = NewHashCodeGenerator(DefaultCodeLength)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Events == nil {
		opts.Events = nopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	reserved := make(map[string]struct{}, len(opts.Reserved))
	for _, code := range opts.Reserved {
		reserved[code] = struct{}{}
	}

	return &Registry{
		links:       make(map[string]*Link),
		byID:        make(map[uuid.UUID]string),
		identities:  identities,
		gen:         opts.Generator,
		maxAttempts: opts.MaxAttempts,
		reserved:    reserved,
		events:      opts.Events,
		log:         opts.Logger,
		now:         time.Now,
	}
}

// Create registers a new link owned by in.Owner and returns a copy of it.
func (r *Registry) Create(ctx context.Context, in CreateInput) (Link, error) {
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}

	target := strings.TrimSpace(in.URL)
	if !validation.IsWellFormedURL(target) {
		return Link{}, fmt.Errorf("%w: url must be an absolute http or https address", ErrInvalidInput)
	}
	if in.Owner == uuid.Nil {
		return Link{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if in.ClickLimit <= 0 {
		return Link{}, fmt.Errorf("%w: click limit must be positive (got %d)", ErrInvalidInput, in.ClickLimit)
	}
	if in.TTL <= 0 {
		return Link{}, fmt.Errorf("%w: ttl must be positive (got %s)", ErrInvalidInput, in.TTL)
	}

	r.mu.Lock()

	now := r.now()
	seed := Seed{URL: target, Owner: in.Owner, At: now}

	code := ""
	attempts := 0
	for attempts < r.maxAttempts {
		candidate := r.gen.Generate(seed, attempts)
		attempts++
		if r.available(candidate) {
			code = candidate
			break
		}
	}
	codeGenerationAttempts.Observe(float64(attempts))

	if code == "" {
		r.mu.Unlock()
		r.log.Error("short code space exhausted",
			zap.Int("attempts", attempts),
			zap.Int("registered", len(r.links)),
		)
		return Link{}, fmt.Errorf("%w: gave up after %d attempts", ErrCapacityExhausted, attempts)
	}

	link := &Link{
		ID:         uuid.New(),
		URL:        target,
		Code:       code,
		Owner:      in.Owner,
		ClickLimit: in.ClickLimit,
		CreatedAt:  now,
		ExpiresAt:  now.Add(in.TTL),
		Active:     true,
	}
	r.links[code] = link
	r.byID[link.ID] = code
	r.identities.RecordLink(link.Owner, link.ID)
	registered := len(r.links)
	out := *link

	r.mu.Unlock()

	linksCreatedTotal.Inc()
	linksActive.Set(float64(registered))
	r.events.Publish(events.NewLinkEvent(events.TypeLinkCreated, out.Code, out.ID, out.Owner, 0, out.ClickLimit, now))
	trace.SpanFromContext(ctx).AddEvent("link.created", trace.WithAttributes(
		attribute.String("link.code", out.Code),
		attribute.Int("link.code_attempts", attempts),
	))

	r.log.Debug("link created",
		zap.String("code", out.Code),
		zap.String("owner", out.Owner.String()),
		zap.Int("click_limit", out.ClickLimit),
		zap.Time("expires_at", out.ExpiresAt),
	)
	return out, nil
}

// Redirect resolves code to its destination and consumes one click. No
// click is consumed when an error is returned.
func (r *Registry) Redirect(ctx context.Context, code string) (string, error) {
	target, ev, err := r.consume(code)

	linkRedirectsTotal.WithLabelValues(redirectOutcome(err)).Inc()
	trace.SpanFromContext(ctx).AddEvent("link.redirect", trace.WithAttributes(
		attribute.String("link.code", code),
		attribute.String("link.outcome", redirectOutcome(err)),
	))
	if err != nil {
		return "", err
	}

	r.events.Publish(ev)
	return target, nil
}

func (r *Registry) consume(code string) (string, events.LinkEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[code]
	if !ok {
		return "", events.LinkEvent{}, ErrNotFound
	}

	now := r.now()
	if err := link.check(now); err != nil {
		return "", events.LinkEvent{}, err
	}

	link.Clicks++
	ev := events.NewLinkEvent(events.TypeLinkClicked, link.Code, link.ID, link.Owner, link.Clicks, link.ClickLimit, now)
	return link.URL, ev, nil
}

// Stats returns the descriptor of code when requester owns it.
func (r *Registry) Stats(_ context.Context, code string, requester uuid.UUID) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[code]
	if !ok {
		return Stats{}, ErrNotFound
	}
	if link.Owner != requester {
		return Stats{}, ErrForbidden
	}
	return link.stats(r.now()), nil
}

// Delete removes code when requester owns it. It reports false both for an
// unknown code and for a link owned by someone else.
func (r *Registry) Delete(_ context.Context, code string, requester uuid.UUID) bool {
	r.mu.Lock()

	link, ok := r.links[code]
	if !ok || link.Owner != requester {
		r.mu.Unlock()
		return false
	}

	r.removeLocked(link)
	registered := len(r.links)
	ev := events.NewLinkEvent(events.TypeLinkDeleted, link.Code, link.ID, link.Owner, link.Clicks, link.ClickLimit, r.now())

	r.mu.Unlock()

	linksDeletedTotal.Inc()
	linksActive.Set(float64(registered))
	r.events.Publish(ev)
	return true
}

// SweepExpired removes every link whose expiry is at or before now and
// returns how many were removed. Quota-exhausted links are left in place.
func (r *Registry) SweepExpired(_ context.Context) int {
	r.mu.Lock()

	now := r.now()
	var removed []events.LinkEvent
	for _, link := range r.links {
		if !link.expiredAt(now) {
			continue
		}
		r.removeLocked(link)
		removed = append(removed, events.NewLinkEvent(events.TypeLinkExpired, link.Code, link.ID, link.Owner, link.Clicks, link.ClickLimit, now))
	}
	registered := len(r.links)

	r.mu.Unlock()

	linksReclaimedTotal.Add(float64(len(removed)))
	linksActive.Set(float64(registered))
	for _, ev := range removed {
		r.events.Publish(ev)
	}
	return len(removed)
}

// LinksOf returns descriptors for every link currently owned by owner.
func (r *Registry) LinksOf(_ context.Context, owner uuid.UUID) []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	ids := r.identities.LinkIDs(owner)
	out := make([]Stats, 0, len(ids))
	for _, id := range ids {
		code, ok := r.byID[id]
		if !ok {
			continue
		}
		out = append(out, r.links[code].stats(now))
	}
	return out
}

// Len returns the number of links currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

func (r *Registry) available(code string) bool {
	if code == "" {
		return false
	}
	if _, reserved := r.reserved[code]; reserved {
		return false
	}
	_, taken := r.links[code]
	return !taken
}

func (r *Registry) removeLocked(link *Link) {
	delete(r.links, link.Code)
	delete(r.byID, link.ID)
	r.identities.ForgetLink(link.Owner, link.ID)
}
