package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvloznov/momo-tracker/internal/api/handlers"
	"github.com/dvloznov/momo-tracker/internal/auth"
	"github.com/dvloznov/momo-tracker/internal/domain"
	"github.com/dvloznov/momo-tracker/internal/events"
	"github.com/dvloznov/momo-tracker/internal/store"
	"github.com/dvloznov/momo-tracker/internal/store/inmemory"
)

type recordingEmitter struct {
	mu  sync.Mutex
	got []events.Event
}

func (e *recordingEmitter) Emit(ev events.Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, ev)
	return true
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type testServer struct {
	handler http.Handler
	store   *inmemory.Store
	events  *recordingEmitter
}

func newTestServer(t *testing.T, strict bool, seed ...domain.RawRecord) *testServer {
	t.Helper()

	gate, err := auth.NewGateFromPasswords("", map[string]string{"admin": "password123"}, bcrypt.MinCost)
	require.NoError(t, err)

	s := inmemory.NewStore()
	require.NoError(t, s.Load(t.Context(), seed))

	em := &recordingEmitter{}
	log := zerolog.Nop()

	return &testServer{
		handler: New(Deps{
			Gate:         gate,
			Transactions: handlers.NewTransactionsHandler(s, em, strict),
			Health:       handlers.NewHealthHandler(s),
			Log:          log,
		}),
		store:  s,
		events: em,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth("admin", "password123")

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	return rec, env
}

func decodeTx(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestGetTransaction_Errors(t *testing.T) {
	ts := newTestServer(t, false)

	rec, env := ts.do(t, http.MethodGet, "/transactions/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, env.Error, "5")

	rec, env = ts.do(t, http.MethodGet, "/transactions/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid transaction ID", env.Error)
}

func TestListTransactions(t *testing.T) {
	ts := newTestServer(t, false)

	rec, env := ts.do(t, http.MethodGet, "/transactions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	ts = newTestServer(t, false,
		domain.RawRecord{Type: "deposit", Amount: 5000, Sender: "John Doe", Receiver: "MTN_MOMO", Timestamp: "2024-01-01T10:00:00", Message: "hello"},
		domain.RawRecord{Type: "payment", Amount: 1000, Sender: "Jane Smith", Receiver: "ShopRite", Timestamp: "2024-01-02T10:00:00"},
	)
	rec, env = ts.do(t, http.MethodGet, "/transactions", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, 1.0, list[0]["id"])
	assert.Equal(t, "hello", list[0]["message"])
	assert.Equal(t, 2.0, list[1]["id"])
	assert.NotContains(t, list[1], "message")
}

func TestCreateTransaction(t *testing.T) {
	ts := newTestServer(t, false)

	rec, env := ts.do(t, http.MethodPost, "/transactions", `{"type":"payment","amount":1000,"sender":"A","receiver":"B","id":77}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeTx(t, env.Data)
	assert.Equal(t, 1.0, created["id"])
	assert.Equal(t, "payment", created["type"])
	assert.Equal(t, 1000.0, created["amount"])
	assert.NotEmpty(t, created["timestamp"])

	rec, env = ts.do(t, http.MethodGet, "/transactions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeTx(t, env.Data))

	require.Len(t, ts.events.got, 1)
	assert.Equal(t, events.TypeCreated, ts.events.got[0].Type)
}

func TestCreateTransaction_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		strict  bool
		wantErr string
	}{
		{"missing receiver", `{"type":"deposit","amount":5000,"sender":"X"}`, false, "Missing required fields"},
		{"invalid json", `{"type":`, false, "Invalid JSON"},
		{"empty body", ``, false, "Invalid JSON"},
		{"array body", `[1,2]`, false, "Invalid JSON"},
		{"amount not numeric", `{"type":"deposit","amount":"5k","sender":"X","receiver":"Y"}`, false, "amount must be a number"},
		{"strict unknown field", `{"type":"deposit","amount":1,"sender":"X","receiver":"Y","channel":"ussd"}`, true, "unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.strict)
			rec, env := ts.do(t, http.MethodPost, "/transactions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, env.Error, tt.wantErr)
			assert.Zero(t, ts.store.Len())
		})
	}
}

func TestCreateTransaction_MissingFieldsListed(t *testing.T) {
	ts := newTestServer(t, false)
	_, env := ts.do(t, http.MethodPost, "/transactions", `{"type":"deposit","amount":5000,"sender":"X"}`)
	for _, f := range domain.RequiredFields {
		assert.Contains(t, env.Error, f)
	}
}

func TestCreateTransaction_PassthroughKeepsUnknownFields(t *testing.T) {
	ts := newTestServer(t, false)
	rec, env := ts.do(t, http.MethodPost, "/transactions", `{"type":"deposit","amount":1,"sender":"X","receiver":"Y","channel":"ussd"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ussd", decodeTx(t, env.Data)["channel"])
}

func TestUpdateTransaction(t *testing.T) {
	ts := newTestServer(t, false, domain.RawRecord{Type: "deposit", Amount: 5000, Sender: "A", Receiver: "B", Timestamp: "2024-01-01T10:00:00"})

	rec, env := ts.do(t, http.MethodPut, "/transactions/1", `{"amount":7500,"id":99}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeTx(t, env.Data)
	assert.Equal(t, 1.0, updated["id"])
	assert.Equal(t, 7500.0, updated["amount"])
	assert.Equal(t, "A", updated["sender"])
	assert.Equal(t, "2024-01-01T10:00:00", updated["timestamp"])

	rec, _ = ts.do(t, http.MethodGet, "/transactions/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.do(t, http.MethodPut, "/transactions/42", `{"amount":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.do(t, http.MethodPut, "/transactions/x", `{"amount":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPut, "/transactions/1", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Len(t, ts.events.got, 1)
	assert.Equal(t, events.TypeUpdated, ts.events.got[0].Type)
}

func TestDeleteTransaction(t *testing.T) {
	ts := newTestServer(t, false, domain.RawRecord{Type: "withdrawal", Amount: 20000, Sender: "A", Receiver: "ATM_KIGALI"})

	rec, env := ts.do(t, http.MethodDelete, "/transactions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message string                 `json:"message"`
		Deleted map[string]interface{} `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "Transaction 1 deleted", body.Message)
	assert.Equal(t, "withdrawal", body.Deleted["type"])

	rec, _ = ts.do(t, http.MethodGet, "/transactions/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.do(t, http.MethodDelete, "/transactions/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.do(t, http.MethodDelete, "/transactions/one", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = ts.do(t, http.MethodPost, "/transactions", `{"type":"payment","amount":1,"sender":"A","receiver":"B"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2.0, decodeTx(t, env.Data)["id"])
}

func TestUnmatchedRoutes(t *testing.T) {
	ts := newTestServer(t, false)

	rec, env := ts.do(t, http.MethodGet, "/accounts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Endpoint not found", env.Error)

	rec, _ = ts.do(t, http.MethodGet, "/transactions/1/extra", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	wrongMethods := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/transactions/5"},
		{http.MethodPut, "/transactions"},
		{http.MethodDelete, "/transactions"},
		{http.MethodPatch, "/transactions"},
		{http.MethodPost, "/health"},
	}
	for _, tt := range wrongMethods {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec, env := ts.do(t, tt.method, tt.path, "{}")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "Endpoint not found", env.Error)
		})
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	ts := newTestServer(t, false)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="MoMo API"`, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodDelete, "/transactions/1", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(t, false)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/whatever", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false, domain.RawRecord{Type: "deposit"})

	rec, env := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeTx(t, env.Data)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, 1.0, health["transactions"])
}

// brokenStore fails every write with an error other than store.ErrNotFound.
type brokenStore struct {
	*inmemory.Store
}

var errDiskFull = errors.New("disk full")

func (brokenStore) Add(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	return nil, errDiskFull
}

func (brokenStore) Update(ctx context.Context, id int64, p domain.Patch) (*domain.Transaction, error) {
	return nil, errDiskFull
}

func newServerWithStore(t *testing.T, s store.Store, log zerolog.Logger) http.Handler {
	t.Helper()

	gate, err := auth.NewGateFromPasswords("", map[string]string{"admin": "password123"}, bcrypt.MinCost)
	require.NoError(t, err)

	return New(Deps{
		Gate:         gate,
		Transactions: handlers.NewTransactionsHandler(s, nil, false),
		Health:       handlers.NewHealthHandler(s),
		Log:          log,
	})
}

func TestStoreFailureReturnsGenericError(t *testing.T) {
	buf := &bytes.Buffer{}
	base := inmemory.NewStore()
	require.NoError(t, base.Load(t.Context(), []domain.RawRecord{{Type: "deposit", Amount: 10, Sender: "A", Receiver: "B"}}))
	h := newServerWithStore(t, brokenStore{Store: base}, zerolog.New(buf))

	tests := []struct {
		name    string
		method  string
		path    string
		wantMsg string
	}{
		{"create", http.MethodPost, "/transactions", "Failed to create transaction"},
		{"update", http.MethodPut, "/transactions/1", "Failed to update transaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"type":"deposit","amount":1,"sender":"A","receiver":"B"}`))
			req.SetBasicAuth("admin", "password123")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tt.wantMsg, env.Error)
			assert.NotContains(t, rec.Body.String(), "disk full")
		})
	}

	assert.Contains(t, buf.String(), "disk full")
}

func TestHandlerLogsCarryRequestIDAndUser(t *testing.T) {
	buf := &bytes.Buffer{}
	h := newServerWithStore(t, inmemory.NewStore(), zerolog.New(buf))

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"type":"deposit","amount":1,"sender":"A","receiver":"B"}`))
	req.SetBasicAuth("admin", "password123")
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "Transaction created" {
			created = entry
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, "req-42", created["request_id"])
	assert.Equal(t, "admin", created["user"])
	assert.Equal(t, 1.0, created["transaction_id"])
}
