package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aukilabs/sowilo/feed"
	sowilohttp "github.com/aukilabs/sowilo/http"
	"github.com/aukilabs/sowilo/pipeline"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newFeedServer(t *testing.T, token string) *httptest.Server {
	server := httptest.NewServer(websocket.Server{
		Handshake: sowilohttp.VerifyToken(token),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := &feed.SensorHandler{
				Sink:              &pipeline.Inputs{},
				ClientIdleTimeout: time.Second,
			}
			defer h.Close()

			feed.Handle(context.Background(), conn, h)
		},
	})
	t.Cleanup(server.Close)
	return server
}

func TestRun(t *testing.T) {
	t.Run("ping is acknowledged", func(t *testing.T) {
		server := newFeedServer(t, "")

		res, err := Run(context.Background(), Options{Endpoint: server.URL}, Request{})
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
		require.Equal(t, server.URL, res.Endpoint)
		require.Greater(t, res.LatencyMilliSec, float64(0))
	})

	t.Run("token from options is used", func(t *testing.T) {
		server := newFeedServer(t, "secret")

		res, err := Run(context.Background(), Options{
			Endpoint: server.URL,
			Token:    "secret",
		}, Request{})
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
	})

	t.Run("wrong token fails", func(t *testing.T) {
		server := newFeedServer(t, "secret")

		res, err := Run(context.Background(), Options{Endpoint: server.URL}, Request{
			Token:   "guess",
			Timeout: time.Second,
		})
		require.Error(t, err)
		require.Equal(t, StatusFailed, res.Status)
		require.NotEmpty(t, res.Error)
	})

	t.Run("offline endpoint fails", func(t *testing.T) {
		res, err := Run(context.Background(), Options{}, Request{
			Endpoint: "http://127.0.0.1:1",
			Timeout:  time.Second,
		})
		require.Error(t, err)
		require.Equal(t, StatusFailed, res.Status)
		require.Zero(t, res.LatencyMilliSec)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	server := newFeedServer(t, "")
	h := HandleSmokeTest(context.Background(), Options{UserAgent: "Sowilo test"})

	body, err := json.Marshal(Request{
		Endpoint: server.URL,
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, StatusSuccess, res.Status)
}
