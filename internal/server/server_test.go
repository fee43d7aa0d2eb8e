package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/storage"
)

type fakeStore struct {
	reports map[string][]byte
	err     error
}

func (f *fakeStore) SaveReport(context.Context, storage.ReportKey, []byte, string) error {
	return errors.New("read only")
}

func (f *fakeStore) GetReport(_ context.Context, key storage.ReportKey) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reports[storage.ObjectPath(key)], nil
}

func (f *fakeStore) ListReports(_ context.Context, prefix string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var paths []string
	for p := range f.reports {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestServer(t *testing.T, store storage.ReportStore) (http.Handler, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	s, err := New(Config{Port: 8080, Store: store, Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	require.NoError(t, err)
	return s.Handler(), &logs
}

func TestNew_RequiresStore(t *testing.T) {
	s, err := New(Config{Port: 8080})
	require.Error(t, err)
	assert.Nil(t, s)
}

func TestServer_Health(t *testing.T) {
	h, _ := newTestServer(t, &fakeStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_GetReport(t *testing.T) {
	store := &fakeStore{reports: map[string][]byte{
		"grafana/diffcover/feature/x/diff-coverage.md":   []byte("## Diff Coverage\n"),
		"grafana/diffcover/feature/x/diff-coverage.json": []byte(`{"percent":80}`),
	}}
	h, _ := newTestServer(t, store)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantType    string
		wantBody    string
		wantInError string
	}{
		{
			name:       "default extension",
			path:       "/reports/grafana/diffcover/feature/x",
			wantStatus: http.StatusOK,
			wantType:   "text/markdown",
			wantBody:   "## Diff Coverage\n",
		},
		{
			name:       "json extension",
			path:       "/reports/grafana/diffcover/feature/x?ext=json",
			wantStatus: http.StatusOK,
			wantType:   "application/json",
			wantBody:   `{"percent":80}`,
		},
		{
			name:        "missing report",
			path:        "/reports/grafana/diffcover/main",
			wantStatus:  http.StatusNotFound,
			wantInError: "report not found: grafana/diffcover/main/diff-coverage.md",
		},
		{
			name:        "bad extension",
			path:        "/reports/grafana/diffcover/main?ext=a/b",
			wantStatus:  http.StatusBadRequest,
			wantInError: "invalid extension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantInError != "" {
				var body errorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Contains(t, body.Error, tt.wantInError)
				assert.Equal(t, rec.Header().Get("X-Request-ID"), body.RequestID)
				return
			}
			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestServer_ListReports(t *testing.T) {
	store := &fakeStore{reports: map[string][]byte{
		"grafana/diffcover/main/diff-coverage.md": nil,
		"other/repo/main/diff-coverage.md":        nil,
	}}
	h, _ := newTestServer(t, store)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports?prefix=grafana/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":["grafana/diffcover/main/diff-coverage.md"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports?prefix=none/", nil))
	assert.JSONEq(t, `{"reports":[]}`, rec.Body.String())
}

func TestServer_StoreFailure(t *testing.T) {
	h, logs := newTestServer(t, &fakeStore{err: errors.New("bucket unavailable")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/o/r/main", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to read report")
	assert.NotContains(t, rec.Body.String(), "bucket unavailable")
	assert.Contains(t, logs.String(), "bucket unavailable")
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t, &fakeStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RequestID, Logging(logger), Recovery(logger))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/crash", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), "status=500")
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("first"), mark("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestServer_StartAndShutdown(t *testing.T) {
	s, err := New(Config{Port: 0, Store: &fakeStore{}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
