package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestHandleReadyCheck(t *testing.T) {
	ready := false
	h := HandleReadyCheck(func() bool { return ready })

	t.Run("not ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("ready", func(t *testing.T) {
		ready = true
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleVersion(t *testing.T) {
	w := httptest.NewRecorder()
	HandleVersion("v1.2.3")(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v1.2.3", w.Body.String())
}

func TestHandleJSON(t *testing.T) {
	h := HandleJSON(func() any {
		return map[string]int{"leaves": 8}
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/about", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))
		require.JSONEq(t, `{"leaves":8}`, w.Body.String())
	})

	t.Run("post is not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/about", nil))
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("encoding error", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleJSON(func() any { return make(chan int) })(w, httptest.NewRequest(http.MethodGet, "/about", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandlePostJSON(t *testing.T) {
	type label struct {
		Label string `json:"label"`
	}

	h := HandlePostJSON(func(in label) (any, error) {
		if in.Label == "" {
			return nil, errors.New("label is empty").WithType("empty-label")
		}
		return map[string]string{"saved": in.Label}, nil
	})

	t.Run("post", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/points", strings.NewReader(`{"label":"door"}`)))
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"saved":"door"}`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/points", strings.NewReader(`{`)))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejected input", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/points", strings.NewReader(`{}`)))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Contains(t, w.Body.String(), `"type":"empty-label"`)
	})

	t.Run("get is not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/points", nil))
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHandleWithCORS(t *testing.T) {
	h := HandleWithCORS(http.HandlerFunc(HandleHealthCheck))

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/health", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestVerifyTokenHandler(t *testing.T) {
	h := VerifyTokenHandler("secret", HandleHealthCheck)

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer secret")

		w := httptest.NewRecorder()
		h(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer nope")

		w := httptest.NewRecorder()
		h(w, r)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no token configured", func(t *testing.T) {
		w := httptest.NewRecorder()
		VerifyTokenHandler("", HandleHealthCheck)(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMetricsPathFormatter(t *testing.T) {
	require.Empty(t, MetricsPathFormatter(http.StatusNotFound, "/unknown"))
	require.Empty(t, MetricsPathFormatter(http.StatusUnauthorized, "/feed"))
	require.Equal(t, "/feed", MetricsPathFormatter(http.StatusOK, "/feed"))
}

func TestListenAndServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		ListenAndServe(ctx, time.Second, &http.Server{Addr: "127.0.0.1:0"})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("servers did not stop")
	}
}
