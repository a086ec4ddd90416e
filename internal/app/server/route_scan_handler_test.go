package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"scangate/internal/api/dto"
	"scangate/internal/domain"
	"scangate/internal/ratelimit"
)

func TestCreateScanQueuesValidatedTarget(t *testing.T) {
	db := setupServerTest(t)
	queue := &fakeDispatcher{}
	h := NewRouter(Deps{Dispatcher: queue})
	token := registerAndLogin(t, h, "scanner@example.com")

	rec := doJSON(t, h, http.MethodPost, "/scans", token, map[string]string{"target": "HTTPS://www.Example.com/login"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var summary dto.ScanSummary
	decodeBody(t, rec, &summary)
	if summary.Target != "example.com" || summary.Status != domain.ScanStatusQueued {
		t.Fatalf("unexpected summary %+v", summary)
	}

	jobs := queue.Jobs()
	if len(jobs) != 1 || jobs[0].Target != "example.com" || jobs[0].ID != summary.ID {
		t.Fatalf("dispatched jobs = %+v", jobs)
	}

	var stored domain.ScanRequest
	if err := db.First(&stored, summary.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Target != "example.com" {
		t.Fatalf("stored target = %q", stored.Target)
	}
}

func TestCreateScanRejectsInvalidTarget(t *testing.T) {
	db := setupServerTest(t)
	queue := &fakeDispatcher{}
	h := NewRouter(Deps{Dispatcher: queue})
	token := registerAndLogin(t, h, "scanner@example.com")

	rec := doJSON(t, h, http.MethodPost, "/scans", token, map[string]string{"target": "10.0.0.5"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body dto.TargetRejection
	decodeBody(t, rec, &body)
	if body.Code != "INVALID_TARGET" || body.Message != "Cannot scan private network addresses (10.x.x.x)" {
		t.Fatalf("unexpected rejection %+v", body)
	}

	var count int64
	db.Model(&domain.ScanRequest{}).Count(&count)
	if count != 0 || len(queue.Jobs()) != 0 {
		t.Fatalf("rejected target was forwarded: rows=%d jobs=%d", count, len(queue.Jobs()))
	}
}

func TestCreateScanRequiresAuth(t *testing.T) {
	setupServerTest(t)
	h := NewRouter(Deps{Dispatcher: &fakeDispatcher{}})

	rec := doJSON(t, h, http.MethodPost, "/scans", "", map[string]string{"target": "example.com"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateScanDispatchFailure(t *testing.T) {
	db := setupServerTest(t)
	h := NewRouter(Deps{Dispatcher: &fakeDispatcher{err: errors.New("queue down")}})
	token := registerAndLogin(t, h, "scanner@example.com")

	rec := doJSON(t, h, http.MethodPost, "/scans", token, map[string]string{"target": "example.com"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var stored domain.ScanRequest
	if err := db.First(&stored).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.ScanStatusFailed {
		t.Fatalf("status = %q, want %q", stored.Status, domain.ScanStatusFailed)
	}
}

func TestScanLimiterDeniesBeforeValidation(t *testing.T) {
	setupServerTest(t)
	limiter := ratelimit.NewInMemory(
		ratelimit.WithPolicy(ratelimit.CategoryScan, ratelimit.Policy{Window: time.Hour, Max: 1, Message: "Scan limit reached"}),
	)
	queue := &fakeDispatcher{}
	h := NewRouter(Deps{Limiter: limiter, Dispatcher: queue})
	token := registerAndLogin(t, h, "scanner@example.com")

	if rec := doJSON(t, h, http.MethodPost, "/scans", token, map[string]string{"target": "example.com"}); rec.Code != http.StatusAccepted {
		t.Fatalf("first scan status = %d", rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/scans", token, map[string]string{"target": "localhost"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if len(queue.Jobs()) != 1 {
		t.Fatalf("jobs = %d, want 1", len(queue.Jobs()))
	}
}

func TestListScans(t *testing.T) {
	setupServerTest(t)
	h := NewRouter(Deps{Dispatcher: &fakeDispatcher{}})
	token := registerAndLogin(t, h, "scanner@example.com")
	other := registerAndLogin(t, h, "other@example.com")

	for _, target := range []string{"example.com", "example.org"} {
		if rec := doJSON(t, h, http.MethodPost, "/scans", token, map[string]string{"target": target}); rec.Code != http.StatusAccepted {
			t.Fatalf("create %s status = %d", target, rec.Code)
		}
	}
	doJSON(t, h, http.MethodPost, "/scans", other, map[string]string{"target": "example.net"})

	rec := doJSON(t, h, http.MethodGet, "/scans?limit=10", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var scans []dto.ScanSummary
	decodeBody(t, rec, &scans)
	if len(scans) != 2 {
		t.Fatalf("scans = %d, want 2", len(scans))
	}
	if scans[0].Target != "example.org" {
		t.Fatalf("newest first expected, got %q", scans[0].Target)
	}

	if rec := doJSON(t, h, http.MethodGet, "/scans?limit=abc", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", rec.Code)
	}
}
