package testutil

import (
	"net/http"

	id "campaign/pkg/domain"
	"campaign/pkg/requestcontext"
)

// WithUserID attaches the caller the auth middleware would resolve.
// Invalid IDs leave the request anonymous.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}
