package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Mamadi-exe/Snoofit/internal/auth"
	"github.com/Mamadi-exe/Snoofit/internal/database"
	"github.com/Mamadi-exe/Snoofit/internal/migrations"
	"github.com/Mamadi-exe/Snoofit/internal/sensing"
	"github.com/Mamadi-exe/Snoofit/internal/store"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	handler http.Handler
	players *Registry
	store   *store.Store
	clock   *testClock
	deps    Deps
}

const adminPassword = "correct horse"

func openStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(context.Background(), db, discardLogger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(db)
}

func setupEnv(t *testing.T, st *store.Store, mode string) *testEnv {
	t.Helper()
	if st == nil {
		st = openStore(t)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	clock := &testClock{now: time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)}
	broker := NewBroker()
	players := NewRegistry(st, broker, nil, RegistryConfig{
		SensingMode: mode,
		// Drivers never tick during a test.
		Intervals: sensing.Intervals{Step: time.Hour, Geofence: time.Hour, Grace: time.Hour},
		Clock:     clock,
	}, discardLogger)
	t.Cleanup(func() { players.Close(context.Background()) })

	deps := Deps{
		Players: players,
		Store:   st,
		Tokens:  auth.NewIssuer("test-secret", time.Hour),
		Broker:  broker,
		Admin:   AdminCredentials{User: "admin", PasswordHash: string(hash)},
	}
	return &testEnv{
		handler: newRouter(discardLogger, deps),
		players: players,
		store:   st,
		clock:   clock,
		deps:    deps,
	}
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	return httptest.NewRequest(method, path, rd)
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := jsonRequest(t, method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) session(t *testing.T, name string) SessionResponse {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/session", "", SessionRequest{Name: name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	var resp SessionResponse
	decode(t, rec, &resp)
	return resp
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
}
