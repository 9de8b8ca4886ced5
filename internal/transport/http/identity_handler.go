package http

import (
	"net/http"

	"github.com/IgorGrieder/linkquota/internal/constants"
	"github.com/IgorGrieder/linkquota/internal/processing/links"
	"github.com/IgorGrieder/linkquota/internal/transport/http/middleware"
	"github.com/IgorGrieder/linkquota/pkg/httputils"
	"github.com/google/uuid"
)

type IdentityHandler struct {
	identities IdentityService
	links      LinkService
}

func NewIdentityHandler(identities IdentityService, linkSvc LinkService) *IdentityHandler {
	return &IdentityHandler{identities: identities, links: linkSvc}
}

type identityResponse struct {
	ID    uuid.UUID     `json:"id"`
	Links []links.Stats `json:"links"`
}

func (h *IdentityHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.identities.CreateIdentity()

	w.Header().Set(middleware.UserIDHeader, id.String())
	httputils.WriteAPISuccess(w, r, constants.SuccessIdentityCreated, identityResponse{
		ID:    id,
		Links: []links.Stats{},
	})
}

// Me describes the caller's identity and its live links.
func (h *IdentityHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.UserIDFromContext(r.Context())
	user := h.identities.EnsureIdentity(id)

	httputils.WriteAPISuccess(w, r, constants.SuccessIdentityFound, identityResponse{
		ID:    user.ID,
		Links: h.links.LinksOf(r.Context(), user.ID),
	})
}
