package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zllovesuki/launchpad/boot"
	"github.com/zllovesuki/launchpad/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testRedirect = "http://10.0.0.12:3000"

type fakeBooter struct {
	mu         sync.Mutex
	phase      boot.Phase
	inProgress bool
	boots      int
}

func (f *fakeBooter) Boot(ctx context.Context) (*boot.Sequence, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boots++
	if f.inProgress {
		return &boot.Sequence{ID: "in-flight"}, false
	}
	f.inProgress = true
	f.phase = boot.PhaseStartingInstance
	return &boot.Sequence{ID: "new", StartedAt: time.Now()}, true
}

func (f *fakeBooter) Phase() boot.Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

func (f *fakeBooter) InProgress() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inProgress
}

func (f *fakeBooter) bootCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boots
}

type fakeProbe struct {
	alive bool
	calls int
}

func (f *fakeProbe) IsAlive(ctx context.Context) bool {
	f.calls++
	return f.alive
}

type fakeHistory struct {
	records []history.Record
	err     error
	limit   int
}

func (f *fakeHistory) List(ctx context.Context, instanceID string, limit int) ([]history.Record, error) {
	f.limit = limit
	return f.records, f.err
}

func getService(t *testing.T, booter Booter, probe Prober, option ServiceOptions) *Service {
	option.Orchestrator = booter
	option.Probe = probe
	option.RedirectURL = testRedirect
	option.InstanceID = "i-0e9bae3f994a49647"
	option.Logger = zaptest.NewLogger(t)
	s, err := NewService(option)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewServiceValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewService(ServiceOptions{Probe: &fakeProbe{}, RedirectURL: testRedirect, Logger: logger})
	require.Error(t, err)

	_, err = NewService(ServiceOptions{Orchestrator: &fakeBooter{}, RedirectURL: testRedirect, Logger: logger})
	require.Error(t, err)

	_, err = NewService(ServiceOptions{Orchestrator: &fakeBooter{}, Probe: &fakeProbe{}, Logger: logger})
	require.Error(t, err)

	_, err = NewService(ServiceOptions{Orchestrator: &fakeBooter{}, Probe: &fakeProbe{}, RedirectURL: testRedirect})
	require.Error(t, err)
}

func TestStateIsIdempotent(t *testing.T) {
	booter := &fakeBooter{phase: boot.PhaseAwaitingLiveness}
	probe := &fakeProbe{}
	h := getService(t, booter, probe, ServiceOptions{}).Router()

	for i := 0; i < 3; i++ {
		rec := do(t, h, "/state")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"state":2,"url":"`+testRedirect+`"}`, rec.Body.String())
	}

	assert.Equal(t, 0, booter.bootCount())
	assert.Equal(t, 0, probe.calls)
}

func TestStateFailedIsNegative(t *testing.T) {
	h := getService(t, &fakeBooter{phase: boot.PhaseFailed}, &fakeProbe{}, ServiceOptions{}).Router()

	var status Status
	require.NoError(t, json.Unmarshal(do(t, h, "/state").Body.Bytes(), &status))
	assert.Equal(t, -1, status.State)
	assert.Equal(t, testRedirect, status.URL)
}

func TestIndexRedirectsWhenAlive(t *testing.T) {
	booter := &fakeBooter{phase: boot.PhaseReady}
	h := getService(t, booter, &fakeProbe{alive: true}, ServiceOptions{}).Router()

	rec := do(t, h, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testRedirect, rec.Header().Get("Location"))
	assert.Equal(t, 0, booter.bootCount())
}

func TestIndexBootsWhenOffline(t *testing.T) {
	booter := &fakeBooter{}
	probe := &fakeProbe{}
	h := getService(t, booter, probe, ServiceOptions{}).Router()

	rec := do(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "STARTING_INSTANCE")
	assert.Equal(t, 1, booter.bootCount())
	assert.Equal(t, 1, probe.calls)

	// in flight: the probe is skipped and the guard rejects a second sequence
	rec = do(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, booter.bootCount())
	assert.Equal(t, 1, probe.calls)
	assert.True(t, booter.InProgress())
}

func TestIndexUsesPublicPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<p>custom {{.PhaseName}}</p>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.txt"), []byte("launchpad"), 0o644))

	h := getService(t, &fakeBooter{}, &fakeProbe{}, ServiceOptions{PublicDir: dir}).Router()

	rec := do(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>custom STARTING_INSTANCE</p>", rec.Body.String())

	rec = do(t, h, "/public/logo.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "launchpad", rec.Body.String())
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := getService(t, &fakeBooter{}, &fakeProbe{}, ServiceOptions{}).Router()
		rec := do(t, h, "/history")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		store := &fakeHistory{records: []history.Record{{
			SequenceID: "seq-1",
			InstanceID: "i-0e9bae3f994a49647",
			Outcome:    history.OutcomeReady,
		}}}
		h := getService(t, &fakeBooter{}, &fakeProbe{}, ServiceOptions{History: store}).Router()

		rec := do(t, h, "/history?limit=5")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, store.limit)

		var records []history.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.Len(t, records, 1)
		assert.Equal(t, "seq-1", records[0].SequenceID)
	})

	t.Run("bad limit", func(t *testing.T) {
		h := getService(t, &fakeBooter{}, &fakeProbe{}, ServiceOptions{History: &fakeHistory{}}).Router()
		assert.Equal(t, http.StatusBadRequest, do(t, h, "/history?limit=abc").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, "/history?limit=0").Code)
	})

	t.Run("store error", func(t *testing.T) {
		h := getService(t, &fakeBooter{}, &fakeProbe{}, ServiceOptions{History: &fakeHistory{err: errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")}}).Router()
		rec := do(t, h, "/history")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Service unavailable", body["error"])
		assert.Equal(t, []interface{}{"Cannot get the list of boot sequences"}, body["messages"])
	})
}
