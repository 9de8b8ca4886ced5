package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"

	// Shortener-specific codes
	CodeInvalidURL        = "INVALID_URL"
	CodeInvalidIdentity   = "INVALID_IDENTITY"
	CodeLinkExpired       = "LINK_EXPIRED"
	CodeLinkNotFound      = "LINK_NOT_FOUND"
	CodeLinkQuotaExceeded = "LINK_QUOTA_EXCEEDED"
	CodeLinkInactive      = "LINK_INACTIVE"
	CodeLinkNotOwned      = "LINK_NOT_OWNED"
	CodeCapacityExhausted = "CAPACITY_EXHAUSTED"

	// Success codes
	CodeIdentityCreated = "IDENTITY_CREATED"
	CodeIdentityFound   = "IDENTITY_FOUND"
	CodeLinkCreated     = "LINK_CREATED"
	CodeLinkDeleted     = "LINK_DELETED"
	CodeStatsFound      = "STATS_FOUND"
)
