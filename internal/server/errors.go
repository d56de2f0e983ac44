package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nooogy1/FantasyPetDiscord/internal/checker"
	leaguedomain "github.com/nooogy1/FantasyPetDiscord/internal/league/domain"
	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
	rosterdomain "github.com/nooogy1/FantasyPetDiscord/internal/roster/domain"
)

// Sentinel errors shared by handlers and middleware.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Message }

func invalidRequestError() *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{
		Status:  http.StatusUnprocessableEntity,
		Code:    code,
		Field:   field,
		Message: message,
	}
}

func rateLimitedError() *apiError {
	return &apiError{
		Status:  http.StatusTooManyRequests,
		Code:    "rate_limited",
		Message: "too many requests",
	}
}

// AbortWithError translates domain errors into HTTP responses. Unknown
// errors become an opaque 500 so internals never leak to clients.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		abort(c, apiErr)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrNotFound),
		errors.Is(err, petdomain.ErrPetNotFound),
		errors.Is(err, leaguedomain.ErrLeagueNotFound),
		errors.Is(err, rosterdomain.ErrClaimNotFound):
		status = http.StatusNotFound
	case errors.Is(err, rosterdomain.ErrAlreadyClaimed),
		errors.Is(err, leaguedomain.ErrSlugTaken),
		errors.Is(err, checker.ErrCycleInProgress):
		status = http.StatusConflict
	case errors.Is(err, rosterdomain.ErrRosterFull),
		errors.Is(err, rosterdomain.ErrPetUnavailable),
		errors.Is(err, leaguedomain.ErrInvalidSlug):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}

	code := err.Error()
	if status == http.StatusInternalServerError {
		code = "internal_error"
	}
	abort(c, &apiError{Status: status, Code: code, Message: code})
}

func abort(c *gin.Context, apiErr *apiError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
}
