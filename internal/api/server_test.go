package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tuntasinaja/notify/internal/clock"
	"github.com/tuntasinaja/notify/internal/config"
	"github.com/tuntasinaja/notify/internal/dispatch"
)

// emptyStore satisfies dispatch.Store with no data, so trigger endpoints run
// the real pipeline against nothing.
type emptyStore struct{}

func (emptyStore) DeadlineCandidates(context.Context, time.Time) ([]dispatch.WorkItem, error) {
	return nil, nil
}

func (emptyStore) ScheduleEntries(context.Context, time.Weekday) ([]dispatch.ScheduleEntry, error) {
	return nil, nil
}

func (emptyStore) ClassItemsCreatedBetween(context.Context, string, time.Time, time.Time) ([]dispatch.WorkItem, error) {
	return nil, nil
}

func (emptyStore) ClassItemsDueBetween(context.Context, string, time.Time, time.Time) ([]dispatch.WorkItem, error) {
	return nil, nil
}

func (emptyStore) ClassMembers(context.Context, string) ([]dispatch.Member, error) {
	return nil, nil
}

func (emptyStore) MembersWithReminderTime(context.Context) ([]dispatch.Member, error) {
	return nil, nil
}

func (emptyStore) CompletionMarks(context.Context, []string, []string) (map[string]map[string]bool, error) {
	return nil, nil
}

func (emptyStore) Endpoints(context.Context, []string) ([]dispatch.Endpoint, error) {
	return nil, nil
}

func (emptyStore) DeleteEndpoints(context.Context, []string) (int, error) {
	return 0, nil
}

func testRouter(t *testing.T, secret string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := dispatch.New(emptyStore{}, dispatch.NewMemoryLedger(), nil, nil,
		clock.System(), logger, 1)
	cfg := &config.Config{CronSecret: secret}
	return NewRouter(orch, nil, cfg, logger)
}

func TestCronTriggerRequiresBearerSecret(t *testing.T) {
	t.Parallel()
	router := testRouter(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/cron/deadline-reminder", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/cron/deadline-reminder", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/cron/deadline-reminder", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
}

func TestCronTriggerRejectsGet(t *testing.T) {
	t.Parallel()
	router := testRouter(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/cron/deadline-reminder", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status = %d, want 405", rec.Code)
	}
}

func TestCronTriggerResponseShape(t *testing.T) {
	t.Parallel()
	router := testRouter(t, "")

	for _, path := range []string{
		"/api/cron/deadline-reminder",
		"/api/cron/schedule-reminder",
		"/api/cron/personal-reminder",
	} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, rec.Code)
		}

		var body struct {
			Success     bool   `json:"success"`
			Message     string `json:"message"`
			SentCount   *int   `json:"sentCount"`
			FailedCount *int   `json:"failedCount"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid JSON: %v", path, err)
		}
		if !body.Success || body.Message == "" {
			t.Fatalf("%s: body = %s", path, rec.Body.String())
		}
		if body.SentCount == nil || body.FailedCount == nil {
			t.Fatalf("%s: counts missing: %s", path, rec.Body.String())
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	router := testRouter(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Process-Time"); got == "" {
		t.Fatal("missing X-Process-Time header")
	}
}

func TestAuthDisabledWithEmptySecret(t *testing.T) {
	t.Parallel()
	router := testRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/cron/personal-reminder", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with auth disabled", rec.Code)
	}
}
