package websocket

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

	"github.com/Pittuba/dash-mercado/pkg/contracts/events"
)

func dialURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestHandler_UpgradeAndPush(t *testing.T) {
	hub := startedHub(t, DefaultOptions())
	server := httptest.NewServer(NewHandler(hub, HandlerConfig{AllowedOrigins: []string{"http://localhost:10000"}}, testLogger()))
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "http://localhost:10000")
	header.Set("X-Request-ID", "req-ws-1")
	conn, _, err := websocket.DefaultDialer.Dial(dialURL(server), header)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, events.MessageTypeConnect, hello.Type)
	assert.Equal(t, "req-ws-1", hello.TraceID)

	hub.Publish(context.Background(), events.MessageTypeDatasetReloaded, events.DatasetReloaded{Version: 2})

	var pushed events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, events.MessageTypeDatasetReloaded, pushed.Type)
}

func TestHandler_OriginCheck(t *testing.T) {
	tests := []struct {
		name    string
		cfg     HandlerConfig
		origin  string
		wantErr bool
	}{
		{"listed origin", HandlerConfig{AllowedOrigins: []string{"http://dash.local"}}, "http://dash.local", false},
		{"no origin header", HandlerConfig{}, "", false},
		{"wildcard", HandlerConfig{AllowedOrigins: []string{"*"}}, "http://anywhere", false},
		{"development", HandlerConfig{AllowAnyOrigin: true}, "http://evil.example", false},
		{"foreign origin", HandlerConfig{AllowedOrigins: []string{"http://dash.local"}}, "http://evil.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := startedHub(t, DefaultOptions())
			server := httptest.NewServer(NewHandler(hub, tt.cfg, testLogger()))
			defer server.Close()

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(dialURL(server), header)
			if tt.wantErr {
				require.Error(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			conn.Close()
		})
	}
}

func TestHandler_PlainRequestIsRejected(t *testing.T) {
	hub := startedHub(t, DefaultOptions())
	handler := NewHandler(hub, HandlerConfig{}, testLogger())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "/errors/websocket/upgrade-failed")
}
