package ticket_api_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	"ms-invites/internal/sse"
	"ms-invites/internal/tickets/ticket_api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// readEvent returns the next "event:" name and its "data:" payload.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestStreamEvents(t *testing.T) {
	svc := new(MockTicketService)
	svc.On("GetStats", mock.Anything).Return(models.TicketStats{TotalIssued: 3, TotalRedeemed: 1}, nil)
	emitter := sse.NewTicketEventEmitter()

	h := ticket_api.NewHandler(svc, 10, nil, logger.Discard())
	h.Events = emitter
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/tickets/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	body := bufio.NewReader(resp.Body)

	name, data := readEvent(t, body)
	assert.Equal(t, "stats", name)
	assert.JSONEq(t, `{"total_issued":3,"total_redeemed":1}`, data)

	require.NoError(t, emitter.PublishTicketsPurged(ctx, models.TicketsPurgedEvent{Deleted: 3}))
	name, data = readEvent(t, body)
	assert.Equal(t, "purged", name)
	assert.Contains(t, data, `"deleted":3`)
}

func TestStreamEventsDisabled(t *testing.T) {
	h := ticket_api.NewHandler(new(MockTicketService), 10, nil, logger.Discard())
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
