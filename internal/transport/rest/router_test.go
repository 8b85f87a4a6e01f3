package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainhub/internal/model"
	"trainhub/internal/service"
	"trainhub/internal/transport/rest/handler"
	"trainhub/internal/transport/ws"
)

type stubFetcher struct{}

func (stubFetcher) GetModule(_ context.Context, token string, moduleID int) (*model.Module, error) {
	if moduleID != 1 {
		return nil, service.ErrModuleNotFound
	}
	quiz, _ := json.Marshal([]model.QuizQuestion{
		{Question: "Wear gloves?", Type: model.QuestionTypeMCQ, Options: []string{"yes", "no"}, CorrectAnswer: "yes", Explanation: "always"},
	})
	return &model.Module{
		ID:       1,
		Title:    "PPE",
		Steps:    []model.ModuleStep{{Title: "Gloves", Content: "Wear them"}},
		QuizData: string(quiz),
	}, nil
}

type testServer struct {
	srv    *httptest.Server
	auth   *service.AuthService
	hub    *ws.Hub
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	auth := service.NewAuthService("test-secret")
	svc := service.NewAssessmentService(stubFetcher{}, nil, nil, nil)
	hub := ws.NewHub()
	svc.SetBroadcaster(hub)

	srv := httptest.NewServer(NewRouter(&Container{
		AuthService:       auth,
		AssessmentService: svc,
		WSHub:             hub,
		AllowedOrigins:    []string{"https://lms.example.com"},
	}))
	t.Cleanup(func() {
		srv.Close()
		svc.Shutdown()
		hub.Stop()
	})

	ts := &testServer{srv: srv, auth: auth, hub: hub, tokens: map[string]string{}}
	for _, code := range []string{"E100", "E200"} {
		token, err := auth.IssueLearnerToken(code, time.Hour)
		require.NoError(t, err)
		ts.tokens[code] = token
	}
	return ts
}

func (ts *testServer) do(t *testing.T, learner, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if learner != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[learner])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeView(t *testing.T, data []byte) model.ModuleView {
	t.Helper()
	var v model.ModuleView
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(t, "", "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRequiresLearnerToken(t *testing.T) {
	ts := newTestServer(t)
	status, _ := ts.do(t, "", "POST", "/v1/modules/1/views", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	req, _ := http.NewRequest("POST", ts.srv.URL+"/v1/modules/1/views", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest("OPTIONS", ts.srv.URL+"/v1/modules/1/views", nil)
	req.Header.Set("Origin", "https://lms.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://lms.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestModuleVisitFlow(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, "E100", "POST", "/v1/modules/1/views", nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	view := decodeView(t, body)
	assert.Equal(t, model.ModeContent, view.Mode)
	assert.Equal(t, "Gloves", view.Step.Title)

	// Someone else's view does not exist for them.
	status, _ = ts.do(t, "E200", "GET", "/v1/views/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = ts.do(t, "E100", "GET", "/v1/views/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, "E100", "POST", "/v1/views/"+view.ID+"/quiz/submit", nil)
	assert.Equal(t, http.StatusConflict, status, "no quiz before the content is done")

	status, body = ts.do(t, "E100", "POST", "/v1/views/"+view.ID+"/steps/complete", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	view = decodeView(t, body)
	require.Equal(t, model.ModeQuiz, view.Mode)
	require.NotNil(t, view.Quiz)
	assert.Equal(t, "1:00", view.Quiz.TimeDisplay)
	assert.NotContains(t, string(body), "always", "explanations stay hidden")

	status, _ = ts.do(t, "E100", "POST", "/v1/views/"+view.ID+"/steps/0", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = ts.do(t, "E100", "PUT", "/v1/views/"+view.ID+"/quiz/answers/0", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status, "value is required")
	status, _ = ts.do(t, "E100", "PUT", "/v1/views/"+view.ID+"/quiz/answers/3", map[string]string{"value": "yes"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, "E100", "PUT", "/v1/views/"+view.ID+"/quiz/answers/0", map[string]string{"value": "yes"})
	require.Equal(t, http.StatusOK, status, string(body))
	var answered handler.AnswerResponse
	require.NoError(t, json.Unmarshal(body, &answered))
	assert.True(t, answered.Accepted)
	assert.Equal(t, "yes", answered.View.Quiz.Answers[0])

	status, body = ts.do(t, "E100", "POST", "/v1/views/"+view.ID+"/quiz/submit", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	view = decodeView(t, body)
	require.NotNil(t, view.Quiz.Percentage)
	assert.Equal(t, 100, *view.Quiz.Percentage)
	assert.Equal(t, model.PhaseSubmitted, view.Quiz.Phase)

	status, body = ts.do(t, "E100", "POST", "/v1/views/"+view.ID+"/steps/complete", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "quiz already submitted")

	status, body = ts.do(t, "E100", "PUT", "/v1/views/"+view.ID+"/quiz/answers/0", map[string]string{"value": "no"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &answered))
	assert.False(t, answered.Accepted, "answers after submission are ignored")

	status, _ = ts.do(t, "E100", "DELETE", "/v1/views/"+view.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = ts.do(t, "E100", "GET", "/v1/views/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOpenUnknownModule(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(t, "E100", "POST", "/v1/modules/99/views", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "module not found")
}

func TestListEndpointsWithoutStores(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, "E100", "GET", "/v1/modules/1/attempts", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = ts.do(t, "E100", "GET", "/v1/modules/1/scoreboard?limit=5", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"entries":[],"myRank":-1}`, string(body))

	status, _ = ts.do(t, "E100", "GET", "/v1/modules/1/scoreboard?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.do(t, "E100", "GET", "/v1/modules/0/attempts", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, "E100", "GET", "/v1/attempts/whatever", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func readUntil(t *testing.T, conn *websocket.Conn, want ws.MessageType) ws.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func TestViewWebSocket(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(t, "E100", "POST", "/v1/modules/1/views", nil)
	require.Equal(t, http.StatusCreated, status)
	view := decodeView(t, body)

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/v1/ws/views/" + view.ID

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+ts.tokens["E200"], nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+ts.tokens["E100"], nil)
	require.NoError(t, err)
	defer conn.Close()

	snapshot := readUntil(t, conn, ws.MsgSnapshot)
	assert.Equal(t, view.ID, decodeView(t, snapshot.Payload).ID)
	require.Eventually(t, func() bool { return ts.hub.Watchers(view.ID) == 1 }, time.Second, 10*time.Millisecond)

	ts.do(t, "E100", "POST", "/v1/views/"+view.ID+"/steps/complete", nil)
	ts.do(t, "E100", "POST", "/v1/views/"+view.ID+"/quiz/submit", nil)

	submitted := readUntil(t, conn, ws.MsgSubmitted)
	var event model.SubmittedEvent
	require.NoError(t, json.Unmarshal(submitted.Payload, &event))
	assert.Equal(t, model.TriggerManual, event.Trigger)
	assert.Equal(t, 0, event.Percentage)
	assert.Equal(t, 1, event.MaxScore)

	ts.do(t, "E100", "DELETE", "/v1/views/"+view.ID, nil)
	readUntil(t, conn, ws.MsgClosed)
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server closes the stream after the view is discarded")
}
