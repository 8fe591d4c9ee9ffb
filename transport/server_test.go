package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/engine"
	"github.com/MissChina/ai-chat/responder"
	"github.com/MissChina/ai-chat/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.SequentialEngine) {
	t.Helper()

	store := session.NewInMemoryStore()
	mock := responder.NewMockResponder("mock-model", "Mock")
	eng := engine.New(
		engine.WithStore(store),
		engine.WithRegistry(responder.NewRegistry(mock)),
	)

	ts := httptest.NewServer(NewServer(eng).Handler())
	t.Cleanup(ts.Close)
	return ts, eng
}

func postJSON(t *testing.T, url string, body any, out any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createRoom(t *testing.T, ts *httptest.Server) *core.Room {
	t.Helper()

	var room core.Room
	resp := postJSON(t, ts.URL+"/api/rooms", &core.Room{
		Name:    "Roundtable",
		OwnerID: "u1",
		Members: []core.RoomMember{
			{ID: "m1", ModelID: "mock-model", DisplayName: "Alpha", Order: 1, Enabled: true},
			{ID: "m2", ModelID: "mock-model", DisplayName: "Beta", Order: 2, Enabled: true},
		},
	}, &room)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, room.ID)
	return &room
}

func startSession(t *testing.T, ts *httptest.Server, roomID string) *core.Session {
	t.Helper()

	var sess core.Session
	resp := postJSON(t, ts.URL+"/api/sessions", map[string]string{
		"room_id":  roomID,
		"user_id":  "u1",
		"question": "Q",
	}, &sess)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return &sess
}

func waitForState(t *testing.T, ts *httptest.Server, sessionID string, state core.SessionState) *core.Session {
	t.Helper()

	var snap core.Session
	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/sessions/" + sessionID)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return false
		}
		return snap.State == state
	}, 2*time.Second, 5*time.Millisecond)
	return &snap
}

func TestSessionRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	room := createRoom(t, ts)

	sess := startSession(t, ts, room.ID)
	assert.Equal(t, core.StateInitializing, sess.State)

	waitForState(t, ts, sess.ID, core.StateAIFinished)

	var next core.Session
	resp := postJSON(t, ts.URL+"/api/sessions/"+sess.ID+"/next", nil, &next)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	final := waitForState(t, ts, sess.ID, core.StateCompleted)
	assert.Len(t, final.AssistantMessages(), 2)
}

func TestPauseResumeSkipRoutes(t *testing.T) {
	ts, _ := newTestServer(t)
	room := createRoom(t, ts)
	sess := startSession(t, ts, room.ID)
	waitForState(t, ts, sess.ID, core.StateAIFinished)

	var paused core.Session
	resp := postJSON(t, ts.URL+"/api/sessions/"+sess.ID+"/pause", nil, &paused)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, core.StatePaused, paused.State)

	// Skip while paused maps InvalidTransition to 409.
	resp = postJSON(t, ts.URL+"/api/sessions/"+sess.ID+"/skip", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var resumed core.Session
	resp = postJSON(t, ts.URL+"/api/sessions/"+sess.ID+"/resume", nil, &resumed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, core.StateAIFinished, resumed.State)

	var skipped core.Session
	resp = postJSON(t, ts.URL+"/api/sessions/"+sess.ID+"/skip", nil, &skipped)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, skipped.CurrentIndex)
}

func TestSupplementRoute(t *testing.T) {
	ts, _ := newTestServer(t)
	room := createRoom(t, ts)
	sess := startSession(t, ts, room.ID)
	waitForState(t, ts, sess.ID, core.StateAIFinished)

	var after core.Session
	resp := postJSON(t, ts.URL+"/api/sessions/"+sess.ID+"/supplement", map[string]string{
		"speaker_id": "m1",
		"question":   "why?",
	}, &after)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sp, ok := after.Speaker("m1")
	require.True(t, ok)
	assert.Equal(t, 1, sp.SupplementCount)
}

func TestNotFoundMapsTo404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/sessions/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/sessions", map[string]string{
		"room_id": "missing", "question": "Q",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/sessions", map[string]string{"room_id": "r"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEventStreamSendsSnapshotFirst(t *testing.T) {
	ts, _ := newTestServer(t)
	room := createRoom(t, ts)
	sess := startSession(t, ts, room.ID)
	waitForState(t, ts, sess.ID, core.StateAIFinished)

	resp, err := http.Get(ts.URL + "/api/sessions/" + sess.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	eventLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: state\n", eventLine)

	dataLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataLine, "data: "))

	var ev struct {
		Kind    string        `json:"kind"`
		Session *core.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &ev))
	assert.Equal(t, "state", ev.Kind)
	require.NotNil(t, ev.Session)
	assert.Equal(t, sess.ID, ev.Session.ID)
	assert.Equal(t, core.StateAIFinished, ev.Session.State)
}

func TestEventStreamUnknownSession(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/events", ts.URL, "missing"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
