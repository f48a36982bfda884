package ticket_api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-invites/internal/logger"
	"ms-invites/internal/tickets/ticket_api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestRequestLoggerUsesRoutePattern(t *testing.T) {
	var out bytes.Buffer
	r := chi.NewRouter()
	r.Use(ticket_api.RequestLogger(logger.New(&out, nil)))
	r.Post("/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodPost, "/123:secret-bot-token", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, out.String(), "POST /{token} - 202")
	assert.NotContains(t, out.String(), "secret-bot-token")
}

func TestRequestLoggerDefaultsToOK(t *testing.T) {
	var out bytes.Buffer
	r := chi.NewRouter()
	r.Use(ticket_api.RequestLogger(logger.New(&out, nil)))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, out.String(), "GET /healthz - 200")
}
