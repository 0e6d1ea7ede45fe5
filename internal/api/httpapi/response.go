package httpapi

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/command"
	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/bump"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/queue"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/shuffle"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/stream"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// respondError maps a domain error onto an HTTP status and a stable
// error code. The chat-facing message comes from configuration when
// one is set for the code.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code := classify(err)

	message := s.cfg.GetMessage(code)
	if message == "" {
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		zlog.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.JSON(status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func classify(err error) (int, string) {
	var policyErr *command.PolicyError
	if errors.As(err, &policyErr) {
		return http.StatusUnprocessableEntity, policyErr.Code
	}

	switch {
	case errors.Is(err, stream.ErrInvalidDay),
		errors.Is(err, bump.ErrUnknownBumpCategory):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, command.ErrStreamNotFound):
		return http.StatusNotFound, "stream_not_found"
	case errors.Is(err, metadata.ErrSongNotFound):
		return http.StatusNotFound, "song_not_found"
	case errors.Is(err, queue.ErrRequestNotFound):
		return http.StatusNotFound, "request_not_found"
	case errors.Is(err, queue.ErrNoSongForUser):
		return http.StatusNotFound, "shuffle_no_song"
	case errors.Is(err, command.ErrStreamAlreadyExists):
		return http.StatusConflict, "stream_exists"
	case errors.Is(err, queue.ErrDuplicateSong):
		return http.StatusConflict, "duplicate_song"
	case errors.Is(err, queue.ErrDuplicateUserRequest):
		return http.StatusConflict, "duplicate_user"
	case errors.Is(err, shuffle.ErrAlreadyEntered):
		return http.StatusConflict, "shuffle_duplicate"
	case errors.Is(err, bump.ErrNoBumpsAvailable):
		return http.StatusConflict, "no_bumps_available"
	case errors.Is(err, bump.ErrPaidBumpNotEligible):
		return http.StatusConflict, "paid_bump_used"
	case errors.Is(err, shuffle.ErrAlreadyOpen):
		return http.StatusConflict, "shuffle_already_open"
	case errors.Is(err, shuffle.ErrShuffleNotOpen):
		return http.StatusConflict, "shuffle_closed"
	case errors.Is(err, shuffle.ErrUserOnCooldown):
		return http.StatusConflict, "shuffle_on_cooldown"
	case errors.Is(err, command.ErrRevisionMismatch):
		return http.StatusConflict, "revision_mismatch"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
