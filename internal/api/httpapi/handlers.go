package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/cockroachdb/errors"

	"github.com/jsnphil/kentobot-api-sub000/internal/domain/bump"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/queue"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/stream"
)

type entryResponse struct {
	SongID      string `json:"song_id"`
	RequestedBy string `json:"requested_by"`
	Title       string `json:"title"`
	DurationSec int    `json:"duration_sec"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

type streamResponse struct {
	Day                    string          `json:"day"`
	Revision               int64           `json:"revision"`
	Queue                  []entryResponse `json:"queue"`
	History                []entryResponse `json:"history"`
	BeanRemaining          int             `json:"bean_remaining"`
	ChannelPointsRemaining int             `json:"channel_points_remaining"`
}

func toEntryResponse(e queue.Entry) entryResponse {
	return entryResponse{
		SongID:      e.SongID,
		RequestedBy: e.RequestedBy,
		Title:       e.Title,
		DurationSec: int(e.Duration.Seconds()),
		Status:      e.Status.String(),
		RequestedAt: e.RequestedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toEntryResponses(entries []queue.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}

func toStreamResponse(st *stream.Stream) streamResponse {
	return streamResponse{
		Day:                    st.Day,
		Revision:               st.Revision,
		Queue:                  toEntryResponses(st.Queue.Entries()),
		History:                toEntryResponses(st.Queue.History()),
		BeanRemaining:          st.Bumps.BeanRemaining,
		ChannelPointsRemaining: st.Bumps.ChannelPointsRemaining,
	}
}

func (s *Server) startStream(c *gin.Context) {
	var req struct {
		Day string `json:"day" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: apiError{Code: "invalid_request", Message: err.Error()}})
		return
	}

	st, err := s.service.StartStream(c.Request.Context(), req.Day)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStreamResponse(st))
}

func (s *Server) getStream(c *gin.Context) {
	st, err := s.service.GetStream(c.Request.Context(), c.Param("day"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStreamResponse(st))
}

func (s *Server) getQueue(c *gin.Context) {
	st, err := s.service.GetStream(c.Request.Context(), c.Param("day"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": toEntryResponses(st.Queue.Entries())})
}

func (s *Server) requestSong(c *gin.Context) {
	var req struct {
		User   string `json:"user" binding:"required"`
		SongID string `json:"song_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: apiError{Code: "invalid_request", Message: err.Error()}})
		return
	}

	entry, err := s.service.RequestSong(c.Request.Context(), c.Param("day"), req.User, req.SongID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"entry":   toEntryResponse(entry),
		"message": s.cfg.GetMessage("success"),
	})
}

func (s *Server) removeSong(c *gin.Context) {
	err := s.service.RemoveSong(c.Request.Context(), c.Param("day"), c.Param("songID"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) moveSong(c *gin.Context) {
	var req struct {
		Position *int `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: apiError{Code: "invalid_request", Message: err.Error()}})
		return
	}

	err := s.service.MoveSong(c.Request.Context(), c.Param("day"), c.Param("songID"), *req.Position)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) markPlayed(c *gin.Context) {
	entry, err := s.service.MarkPlayed(c.Request.Context(), c.Param("day"), c.Param("songID"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": toEntryResponse(entry)})
}

func (s *Server) bumpSong(c *gin.Context) {
	var req struct {
		User        string `json:"user" binding:"required"`
		Category    string `json:"category" binding:"required"`
		Position    *int   `json:"position"`
		ModOverride bool   `json:"mod_override"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: apiError{Code: "invalid_request", Message: err.Error()}})
		return
	}

	category, ok := bump.ParseCategory(req.Category)
	if !ok {
		s.respondError(c, errors.Wrapf(bump.ErrUnknownBumpCategory, "%q", req.Category))
		return
	}

	err := s.service.BumpSong(c.Request.Context(), c.Param("day"), req.User, category, req.Position, req.ModOverride)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) resetBumpPools(c *gin.Context) {
	if err := s.service.ResetBumpPools(c.Request.Context(), c.Param("day")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) openShuffle(c *gin.Context) {
	if err := s.service.ToggleShuffle(c.Request.Context(), c.Param("day"), true); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) closeShuffle(c *gin.Context) {
	if err := s.service.ToggleShuffle(c.Request.Context(), c.Param("day"), false); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) enterShuffle(c *gin.Context) {
	var req struct {
		User string `json:"user" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: apiError{Code: "invalid_request", Message: err.Error()}})
		return
	}

	if err := s.service.EnterShuffle(c.Request.Context(), c.Param("day"), req.User); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) selectShuffleWinner(c *gin.Context) {
	winner, ok, err := s.service.SelectShuffleWinner(c.Request.Context(), c.Param("day"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"winner":  nil,
			"message": s.cfg.GetMessage("shuffle_no_entrants"),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"winner":  winner,
		"message": s.cfg.GetMessage("shuffle_winner"),
	})
}

// platformEvent translates a platform notification (sub, gifted sub,
// bits, raid) into a paid bump grant. A user who already spent their
// daily paid bump is not an error from the platform's point of view,
// so that outcome reports ineligible instead of failing.
func (s *Server) platformEvent(c *gin.Context) {
	var req struct {
		Day  string `json:"day" binding:"required"`
		Type string `json:"type" binding:"required"`
		User string `json:"user" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: apiError{Code: "invalid_request", Message: err.Error()}})
		return
	}

	category, ok := bump.ParseCategory(strings.TrimSpace(req.Type))
	if !ok || category.IsFree() {
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: apiError{Code: "invalid_request", Message: "unknown platform event type"}})
		return
	}

	err := s.service.BumpSong(c.Request.Context(), req.Day, req.User, category, nil, false)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"bumped": true})
	case errors.Is(err, bump.ErrPaidBumpNotEligible):
		zlog.Debug().Str("user", req.User).Str("type", req.Type).Msg("paid bump already spent today")
		c.JSON(http.StatusOK, gin.H{"bumped": false, "reason": "paid_bump_used"})
	case errors.Is(err, queue.ErrNoSongForUser):
		c.JSON(http.StatusOK, gin.H{"bumped": false, "reason": "no_song_for_user"})
	default:
		s.respondError(c, err)
	}
}
