package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scangate/internal/database"
	"scangate/internal/scanqueue"
	"scangate/internal/security"
)

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []scanqueue.Job
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, job scanqueue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeDispatcher) Jobs() []scanqueue.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scanqueue.Job(nil), f.jobs...)
}

func setupServerTest(t *testing.T) *gorm.DB {
	t.Helper()

	t.Setenv("JWT_SECRET", "server-test-secret")
	security.ResetSigningKeyForTests()
	t.Cleanup(security.ResetSigningKeyForTests)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.SetupDB(
		database.WithDialector(sqlite.Open(dsn)),
		database.WithLogger(logger.Discard),
	)
	if err != nil {
		t.Fatalf("setup sqlite database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		database.DB = nil
	})

	return db
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func registerAndLogin(t *testing.T, h http.Handler, email string) string {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/register", "", map[string]string{
		"email":    email,
		"password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["token"] == "" {
		t.Fatal("register returned empty token")
	}
	return resp["token"]
}
