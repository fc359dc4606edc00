package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/config"
	httphandler "github.com/windfall/phonoecho_service/internal/handler/http"
	wshandler "github.com/windfall/phonoecho_service/internal/handler/ws"
	"github.com/windfall/phonoecho_service/internal/logger"
	"github.com/windfall/phonoecho_service/internal/repository"
	"github.com/windfall/phonoecho_service/internal/service"
)

type testServer struct {
	url   string
	token string
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	log := logger.NewNop()
	cfg := &config.Config{
		Environment:        "development",
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST"},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type"},
	}

	auth := service.NewAuthService("test-secret", time.Hour)
	coaching := service.NewCoachingService(repository.NewInMemoryRepository(), capt.DefaultFeedbackConfig(), nil, nil, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewWebSocketHub(log, cfg.CORSAllowedOrigins)
	go hub.Run(ctx)

	router := NewRouter(cfg, log, nil, Routes{
		Health:    httphandler.NewHealthHandler(),
		Coaching:  httphandler.NewCoachingHandler(log, coaching, nil),
		Auth:      httphandler.NewAuthHandler(log, auth),
		Validator: auth,
		WebSocket: hub.Handler(ctx, wshandler.NewHandler(log, coaching)),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("phonoecho_attempts_processed_total 0\n"))
		}),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	token, err := auth.IssueToken("learner-7")
	require.NoError(t, err)
	return testServer{url: srv.URL, token: token}
}

func (s testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.url+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_Routes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{name: "health", path: "/health", want: http.StatusOK},
		{name: "live", path: "/live", want: http.StatusOK},
		{name: "ready", path: "/ready", want: http.StatusOK},
		{name: "metrics", path: "/metrics", want: http.StatusOK},
		{name: "progress without token", path: "/api/v1/lessons/rocket/progress", want: http.StatusUnauthorized},
		{name: "progress with bad token", path: "/api/v1/lessons/rocket/progress", token: "nope", want: http.StatusUnauthorized},
		{name: "progress before first attempt", path: "/api/v1/lessons/rocket/progress", token: s.token, want: http.StatusNotFound},
		{name: "websocket without token", path: "/ws", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.get(t, tt.path, tt.token)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRouter_WebSocket(t *testing.T) {
	s := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(s.url, "http") + "/ws?access_token=" + s.token

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: wshandler.TypePing}))

	var reply wshandler.Response
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, wshandler.TypePong, reply.Type)

	// Feedback before any attempt is reported, not fatal to the connection.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    wshandler.TypeFeedback,
		"payload": map[string]string{"lesson_id": "rocket"},
	}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, wshandler.TypeError, reply.Type)
}
