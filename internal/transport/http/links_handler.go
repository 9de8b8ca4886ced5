package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/linkquota/internal/config"
	"github.com/IgorGrieder/linkquota/internal/constants"
	"github.com/IgorGrieder/linkquota/internal/infrastructure/logger"
	appvalidation "github.com/IgorGrieder/linkquota/internal/infrastructure/validation"
	"github.com/IgorGrieder/linkquota/internal/processing/identity"
	"github.com/IgorGrieder/linkquota/internal/processing/links"
	"github.com/IgorGrieder/linkquota/internal/transport/http/middleware"
	"github.com/IgorGrieder/linkquota/pkg/httputils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LinkService is the part of the link registry the HTTP layer drives.
type LinkService interface {
	Create(ctx context.Context, in links.CreateInput) (links.Link, error)
	Redirect(ctx context.Context, code string) (string, error)
	Stats(ctx context.Context, code string, requester uuid.UUID) (links.Stats, error)
	Delete(ctx context.Context, code string, requester uuid.UUID) bool
	LinksOf(ctx context.Context, owner uuid.UUID) []links.Stats
	Len() int
}

// IdentityService is the part of the identity registry the HTTP layer drives.
type IdentityService interface {
	CreateIdentity() uuid.UUID
	EnsureIdentity(id uuid.UUID) identity.User
	Count() int
}

type LinksHandlerOptions struct {
	BaseURL           string
	DefaultClickLimit int
	DefaultTTL        time.Duration
}

type LinksHandler struct {
	svc        LinkService
	identities IdentityService

	baseURL      string
	defaultLimit int
	defaultTTL   time.Duration
}

func NewLinksHandler(svc LinkService, identities IdentityService, opts LinksHandlerOptions) *LinksHandler {
	if opts.DefaultClickLimit <= 0 {
		opts.DefaultClickLimit = 100
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 24 * time.Hour
	}

	return &LinksHandler{
		svc:          svc,
		identities:   identities,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		defaultLimit: opts.DefaultClickLimit,
		defaultTTL:   opts.DefaultTTL,
	}
}

type createLinkRequest struct {
	URL        string `json:"url" validate:"required,notblank,http_url"`
	ClickLimit *int   `json:"clickLimit,omitempty" validate:"omitempty,gt=0"`
	TTLHours   *int   `json:"ttlHours,omitempty" validate:"omitempty,gt=0,lte=876000"`
}

type linkResponse struct {
	Code       string    `json:"code"`
	URL        string    `json:"url"`
	ShortURL   string    `json:"shortUrl"`
	Owner      uuid.UUID `json:"owner"`
	ClickLimit int       `json:"clickLimit"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type statsResponse struct {
	links.Stats
	ShortURL string `json:"shortUrl"`
}

type deleteResponse struct {
	Code    string `json:"code"`
	Deleted bool   `json:"deleted"`
}

// Create registers a link. Callers without an X-User-Id header get a fresh
// identity, returned in the response and in the X-User-Id response header.
func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := httputils.DecodeJSON(w, r, &req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, createValidationError(err))
		return
	}

	owner, ok := middleware.UserIDFromContext(r.Context())
	if ok {
		h.identities.EnsureIdentity(owner)
	} else {
		owner = h.identities.CreateIdentity()
	}

	in := links.CreateInput{
		URL:        req.URL,
		Owner:      owner,
		ClickLimit: h.defaultLimit,
		TTL:        h.defaultTTL,
	}
	if req.ClickLimit != nil {
		in.ClickLimit = *req.ClickLimit
	}
	if req.TTLHours != nil {
		in.TTL = time.Duration(*req.TTLHours) * time.Hour
	}

	link, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeLinkError(w, r, err)
		return
	}

	w.Header().Set(middleware.UserIDHeader, owner.String())
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkCreated, linkResponse{
		Code:       link.Code,
		URL:        link.URL,
		ShortURL:   h.shortURL(link.Code),
		Owner:      link.Owner,
		ClickLimit: link.ClickLimit,
		CreatedAt:  link.CreatedAt,
		ExpiresAt:  link.ExpiresAt,
	})
}

// Redirect answers 302 with the destination, or a plain-text explanation.
func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	target, err := h.svc.Redirect(r.Context(), code)
	if err != nil {
		apiErr := linkAPIError(err)
		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("failed to resolve short code", zap.Error(err), zap.String("code", code))
		}
		httputils.WritePlainError(w, r, apiErr)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *LinksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	requester, _ := middleware.UserIDFromContext(r.Context())

	stats, err := h.svc.Stats(r.Context(), code, requester)
	if err != nil {
		h.writeLinkError(w, r, err)
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessStatsFound, statsResponse{
		Stats:    stats,
		ShortURL: h.shortURL(stats.Code),
	})
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	requester, _ := middleware.UserIDFromContext(r.Context())

	if !h.svc.Delete(r.Context(), code, requester) {
		httputils.WriteAPIError(w, r, constants.ErrLinkNotDeleted)
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkDeleted, deleteResponse{Code: code, Deleted: true})
}

func (h *LinksHandler) shortURL(code string) string {
	return h.baseURL + "/" + code
}

func (h *LinksHandler) writeLinkError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := linkAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("link operation failed", zap.Error(err), zap.String("path", r.URL.Path))
	}
	httputils.WriteAPIError(w, r, apiErr)
}

func linkAPIError(err error) constants.APIError {
	switch {
	case errors.Is(err, links.ErrInvalidInput):
		return constants.ErrInvalidRequestBody.WithMessage(err.Error())
	case errors.Is(err, links.ErrNotFound):
		return constants.ErrLinkNotFound
	case errors.Is(err, links.ErrExpired):
		return constants.ErrLinkExpired
	case errors.Is(err, links.ErrQuotaExceeded):
		return constants.ErrLinkQuotaExceeded
	case errors.Is(err, links.ErrInactive):
		return constants.ErrLinkInactive
	case errors.Is(err, links.ErrForbidden):
		return constants.ErrLinkNotOwned
	case errors.Is(err, links.ErrCapacityExhausted):
		return constants.ErrCapacityExhausted
	default:
		return constants.ErrInternalError
	}
}

func createValidationError(err error) constants.APIError {
	apiErr := constants.ErrInvalidRequestBody
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			switch e.Field() {
			case "url":
				return constants.ErrInvalidURL
			case "clickLimit":
				return apiErr.WithMessage("clickLimit must be a positive integer")
			case "ttlHours":
				return apiErr.WithMessage(fmt.Sprintf("ttlHours must be between 1 and %d", config.MaxTTLHours))
			}
		}
	}
	return apiErr
}
