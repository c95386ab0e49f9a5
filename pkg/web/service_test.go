package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agrione/offline-sync/pkg/connectivity"
	"github.com/agrione/offline-sync/pkg/notice"
	"github.com/agrione/offline-sync/pkg/offline"
	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/agrione/offline-sync/pkg/worker"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, online bool) (*offline.Service, *queue.Registry) {
	t.Helper()
	registry := queue.NewRegistry()
	svc := offline.New(offline.Options{
		Runner:       worker.NewRunner(registry, nil),
		Connectivity: connectivity.NewManual(online),
		Notifier:     &notice.Recorder{},
	})
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(svc.Dispose)
	return svc, registry
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEnqueueAndList(t *testing.T) {
	svc, _ := newService(t, false)
	h := NewWebService(svc, nil, []string{queue.TypeSetPriceAlert}).RegisterEndpoint(mux.NewRouter())

	rec := do(t, h, "POST", "/queue", `{"type":"set-price-alert","payload":{"commodity":"Maize","threshold":2500}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created enqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	rec = do(t, h, "GET", "/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var actions []queue.QueuedAction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actions))
	require.Len(t, actions, 1)
	assert.Equal(t, created.ID, actions[0].ID)
	assert.Equal(t, 0, actions[0].AttemptCount)

	rec = do(t, h, "GET", "/status", "")
	assert.JSONEq(t, `{"online":false,"syncing":false,"pending":1}`, rec.Body.String())
}

func TestEnqueueRejections(t *testing.T) {
	svc, _ := newService(t, false)
	h := NewWebService(svc, nil, []string{queue.TypeSetPriceAlert}).RegisterEndpoint(mux.NewRouter())

	testCases := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{name: "invalid json", body: `{`, expectedStatus: 400},
		{name: "missing type", body: `{"payload":{}}`, expectedStatus: 400, expectedBody: "Missing mandatory field 'type'"},
		{name: "unknown type", body: `{"type":"sell-farm"}`, expectedStatus: 400, expectedBody: "Unknown action type 'sell-farm'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/queue", tc.body)
			assert.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectedBody != "" {
				assert.Equal(t, tc.expectedBody, rec.Body.String())
			}
		})
	}
	assert.Empty(t, svc.Actions())
}

func TestRemoveAndClear(t *testing.T) {
	svc, _ := newService(t, false)
	h := NewWebService(svc, nil, nil).Handler(zerolog.Nop())

	first := svc.EnqueueRaw(context.Background(), queue.TypeSaveFavorite, json.RawMessage(`{"productId":"a"}`))
	second := svc.EnqueueRaw(context.Background(), queue.TypeSaveFavorite, json.RawMessage(`{"productId":"b"}`))
	svc.EnqueueRaw(context.Background(), queue.TypeSaveFavorite, json.RawMessage(`{"productId":"c"}`))

	rec := do(t, h, "DELETE", "/queue/"+first, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, svc.Actions(), 2)
	assert.Equal(t, second, svc.Actions()[0].ID)

	rec = do(t, h, "DELETE", "/queue", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, svc.Actions())
}

func TestSync(t *testing.T) {
	svc, registry := newService(t, true)
	registry.Handle(queue.TypeSaveFavorite, func(ctx context.Context, a queue.QueuedAction) error { return nil })
	h := NewWebService(svc, nil, nil).RegisterEndpoint(mux.NewRouter())

	svc.EnqueueRaw(context.Background(), queue.TypeSaveFavorite, json.RawMessage(`{"productId":"a"}`))

	rec := do(t, h, "POST", "/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary offline.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.Ran)
	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 0, summary.Pending)

	rec = do(t, h, "GET", "/queue", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	svc, _ := newService(t, false)
	h := NewWebService(svc, nil, nil).RegisterEndpoint(mux.NewRouter())

	rec := do(t, h, "PUT", "/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSync_FinishesAfterClientDisconnects(t *testing.T) {
	svc, registry := newService(t, true)
	registry.Handle(queue.TypeSaveFavorite, func(ctx context.Context, a queue.QueuedAction) error {
		return ctx.Err()
	})
	h := NewWebService(svc, nil, nil).RegisterEndpoint(mux.NewRouter())

	svc.EnqueueRaw(context.Background(), queue.TypeSaveFavorite, json.RawMessage(`{"productId":"a"}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary offline.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Synced)
	assert.Empty(t, svc.Actions())
}

func TestNotices(t *testing.T) {
	feed := notice.NewChannelNotifier(8)
	registry := queue.NewRegistry()
	svc := offline.New(offline.Options{
		Runner:       worker.NewRunner(registry, nil),
		Connectivity: connectivity.NewManual(false),
		Notifier:     feed,
	})
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(svc.Dispose)
	h := NewWebService(svc, feed, nil).RegisterEndpoint(mux.NewRouter())

	svc.EnqueueRaw(context.Background(), queue.TypeSaveFavorite, json.RawMessage(`{"productId":"a"}`))

	rec := do(t, h, "GET", "/notices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var notices []notice.Notice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notices))
	require.NotEmpty(t, notices)
	assert.Equal(t, notice.KindQueued, notices[len(notices)-1].Kind)

	rec = do(t, h, "GET", "/notices", "")
	assert.JSONEq(t, `[]`, rec.Body.String(), "notices are handed out once")
}

func TestNotices_WithoutFeed(t *testing.T) {
	svc, _ := newService(t, false)
	h := NewWebService(svc, nil, nil).RegisterEndpoint(mux.NewRouter())

	rec := do(t, h, "GET", "/notices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
