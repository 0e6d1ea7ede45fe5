package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/command"
	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
	"github.com/jsnphil/kentobot-api-sub000/internal/app/policy"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/config"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/eventbus"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/storage"
)

const (
	testDay   = "2025-01-01"
	testToken = "test-token"
)

type stubProvider struct {
	songs map[string]metadata.Song
}

func (p *stubProvider) Lookup(ctx context.Context, songID string) (metadata.Song, error) {
	song, ok := p.songs[songID]
	if !ok {
		return metadata.Song{}, errors.Wrapf(metadata.ErrSongNotFound, "song %s", songID)
	}
	return song, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	provider := &stubProvider{songs: map[string]metadata.Song{
		"songA":   {ID: "songA", Title: "Song A", Duration: 200 * time.Second, Public: true, Embeddable: true, Regions: []string{"US"}},
		"songB":   {ID: "songB", Title: "Song B", Duration: 180 * time.Second, Public: true, Embeddable: true, Regions: []string{"US"}},
		"private": {ID: "private", Title: "Private", Duration: 100 * time.Second, Public: false, Embeddable: true, Regions: []string{"US"}},
	}}

	chain := policy.NewChain()
	chain.Add(&policy.VisibilityRule{})
	chain.Add(policy.NewRegionRule("US"))

	service := command.NewService(
		storage.NewMemoryStreamStore(),
		storage.NewMemoryShuffleStore(),
		eventbus.NewMemoryBus(),
		provider,
		chain,
		command.Config{BeanPool: 3, ChannelPointsPool: 3, ShuffleWindow: time.Minute, CooldownRounds: 2},
	)

	cfg := &config.Config{
		Admin: config.AdminConfig{Token: testToken},
		Messages: config.MessagesConfig{
			Success:      "song added!",
			DefaultError: "something went wrong",
		},
	}

	return NewServer(service, cfg).Router()
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set(AdminTokenHeader, testToken)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func startStream(t *testing.T, router *gin.Engine) {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/streams", gin.H{"day": testDay}, true)
	require.Equal(t, http.StatusCreated, w.Code)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestHealthcheck(t *testing.T) {
	router := newTestRouter(t)
	w := doRequest(t, router, http.MethodGet, "/healthcheck", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminTokenRequired(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/streams", gin.H{"day": testDay}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/streams/"+testDay, nil)
	req.Header.Set(AdminTokenHeader, "wrong-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartStream(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/streams", gin.H{"day": testDay}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp streamResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testDay, resp.Day)
	assert.Equal(t, 3, resp.BeanRemaining)

	// Creating the same day again conflicts.
	w = doRequest(t, router, http.MethodPost, "/api/streams", gin.H{"day": testDay}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "stream_exists", errorCode(t, w))

	// Malformed day.
	w = doRequest(t, router, http.MethodPost, "/api/streams", gin.H{"day": "January 1st"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestSong(t *testing.T) {
	router := newTestRouter(t)
	startStream(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs",
		gin.H{"user": "vin", "song_id": "songA"}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Entry   entryResponse `json:"entry"`
		Message string        `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Song A", resp.Entry.Title)
	assert.Equal(t, "song added!", resp.Message)

	// Same song again conflicts.
	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs",
		gin.H{"user": "kelsier", "song_id": "songA"}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_song", errorCode(t, w))

	// Policy rejection.
	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs",
		gin.H{"user": "kelsier", "song_id": "private"}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "not_public", errorCode(t, w))

	// Unknown song.
	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs",
		gin.H{"user": "kelsier", "song_id": "missing"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueOperations(t *testing.T) {
	router := newTestRouter(t)
	startStream(t, router)

	for user, song := range map[string]string{"vin": "songA", "kelsier": "songB"} {
		w := doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs",
			gin.H{"user": user, "song_id": song}, true)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs/songB/move",
		gin.H{"position": 0}, true)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/streams/"+testDay+"/queue", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var queueResp struct {
		Queue []entryResponse `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queueResp))
	require.Len(t, queueResp.Queue, 2)
	assert.Equal(t, "songB", queueResp.Queue[0].SongID)

	w = doRequest(t, router, http.MethodDelete, "/api/streams/"+testDay+"/songs/songB", nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/api/streams/"+testDay+"/songs/songB", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs/songA/played", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBumpSong(t *testing.T) {
	router := newTestRouter(t)
	startStream(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs",
		gin.H{"user": "vin", "song_id": "songA"}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/bumps",
		gin.H{"user": "vin", "category": "bean"}, true)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/bumps",
		gin.H{"user": "vin", "category": "teleport"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/bumps/reset", nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestShuffleFlow(t *testing.T) {
	router := newTestRouter(t)
	startStream(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs",
		gin.H{"user": "vin", "song_id": "songA"}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	// Entry before the lottery opens.
	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/shuffle/entries",
		gin.H{"user": "vin"}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "shuffle_closed", errorCode(t, w))

	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/shuffle/open", nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/shuffle/entries",
		gin.H{"user": "vin"}, true)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/shuffle/winner", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Winner *struct {
			User   string `json:"user"`
			SongID string `json:"song_id"`
		} `json:"winner"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Winner)
	assert.Equal(t, "vin", resp.Winner.User)
	assert.Equal(t, "songA", resp.Winner.SongID)
}

func TestPlatformEvent(t *testing.T) {
	router := newTestRouter(t)
	startStream(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/streams/"+testDay+"/songs",
		gin.H{"user": "vin", "song_id": "songA"}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/events/platform",
		gin.H{"day": testDay, "type": "sub", "user": "vin"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["bumped"])

	// A second paid event the same day is swallowed, not an error.
	w = doRequest(t, router, http.MethodPost, "/api/events/platform",
		gin.H{"day": testDay, "type": "bits", "user": "vin"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["bumped"])
	assert.Equal(t, "paid_bump_used", resp["reason"])

	// Free categories are not platform events.
	w = doRequest(t, router, http.MethodPost, "/api/events/platform",
		gin.H{"day": testDay, "type": "bean", "user": "vin"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A viewer with no queued song is also not an error.
	w = doRequest(t, router, http.MethodPost, "/api/events/platform",
		gin.H{"day": testDay, "type": "raid", "user": "spook"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["bumped"])
}
