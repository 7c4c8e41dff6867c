package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/mapmedia"
	"github.com/netfusion/netfusion/pkg/observability"
	"github.com/netfusion/netfusion/pkg/store"
)

const testResetToken = "recovery-token"

type testEnv struct {
	server   *Server
	store    *store.Store
	sessions *auth.SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := store.New(db, store.DialectSQLite)
	require.NoError(t, s.Migrate(context.Background()))

	media, err := mapmedia.NewStore(t.TempDir())
	require.NoError(t, err)

	sessions := auth.NewSessionManager("test-secret", 0, "")
	server := NewServer(Options{
		Store:      s,
		Sessions:   sessions,
		Media:      media,
		Metrics:    observability.NewMetrics(prometheus.NewRegistry()),
		Logger:     observability.NewLogger(observability.ErrorLevel, io.Discard),
		ResetToken: testResetToken,
	})

	return &testEnv{server: server, store: s, sessions: sessions}
}

// createUser seeds an account and returns a session token for it.
func (e *testEnv) createUser(t *testing.T, email string, role auth.Role) (int64, string) {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user, err := e.store.CreateUser(context.Background(), email, role, hash)
	require.NoError(t, err)

	token, err := e.sessions.Issue(auth.Identity{Email: user.Email, Role: user.Role})
	require.NoError(t, err)
	return user.ID, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
