package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "An X-User-Id header is required"

	// Shortener-specific messages
	MsgInvalidURL        = "Invalid URL (must be an absolute http or https address)"
	MsgInvalidIdentity   = "X-User-Id must be a UUID"
	MsgLinkNotFound      = "Link not found"
	MsgLinkExpired       = "Link has expired"
	MsgLinkQuotaExceeded = "Link has reached its click limit"
	MsgLinkInactive      = "Link is inactive"
	MsgLinkNotOwned      = "Link belongs to another user"
	MsgLinkNotDeleted    = "Link not found or not owned by this user"
	MsgCapacityExhausted = "No short code is available right now, try again later"
)
