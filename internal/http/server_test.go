package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/internal/amqp"
	"invoicer/internal/auth"
	"invoicer/internal/core"
	"invoicer/internal/layout"
	"invoicer/internal/log"
	"invoicer/internal/middleware/ratelimit"
	"invoicer/internal/records/memory"
	"invoicer/internal/session"
	"invoicer/internal/submission"
)

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []amqp.NotifyMessage
}

func (f *fakeNotifier) PublishNotify(_ context.Context, msg amqp.NotifyMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

type sessionBody struct {
	ID      string `json:"id"`
	Invoice struct {
		Header struct {
			InvoiceNumber string `json:"invoiceNumber"`
			DueDate       string `json:"dueDate"`
		} `json:"header"`
		Columns []core.Column `json:"columns"`
		Items   []struct {
			ID     string          `json:"id"`
			Amount decimal.Decimal `json:"amount"`
		} `json:"items"`
		Total decimal.Decimal `json:"total"`
	} `json:"invoice"`
}

type testEnv struct {
	srv      *Server
	store    *memory.Store
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	logger := log.Discard()
	store := memory.New()
	notifier := &fakeNotifier{}
	ctrl := submission.NewController(submission.Options{Currency: "$", Paper: layout.A4, Profiles: store}, store, notifier, logger)

	deps := Deps{
		Sessions:   session.NewManager(10, time.Hour, logger),
		Controller: ctrl,
		Records:    store,
		Logger:     logger,
		RateLimit:  ratelimit.Config{RequestsPerMinute: 1000},
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := NewServer(":0", deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (e *testEnv) createSession(t *testing.T, headers ...string) sessionBody {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/sessions", nil, headers...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[sessionBody](t, rr)
}

var validHeader = map[string]string{
	"invoiceNumber": "INV-7",
	"clientName":    "Acme",
	"clientEmail":   "billing@acme.test",
	"issueDate":     "2025-03-01",
	"dueDate":       "2025-03-31",
	"category":      "consulting",
}

func TestHealthAndHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestComposeAndExport(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.createSession(t)
	require.Len(t, sess.Invoice.Items, 1)
	base := "/api/sessions/" + sess.ID
	itemID := sess.Invoice.Items[0].ID

	rr := env.do(t, http.MethodPut, base+"/header", validHeader)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, base+"/columns", map[string]string{"name": "Hours", "kind": "number"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	col := decode[struct {
		Column core.Column `json:"column"`
	}](t, rr).Column
	assert.Equal(t, core.KindNumber, col.Kind)

	for _, edit := range []map[string]any{
		{"field": "description", "value": "Audit"},
		{"field": "quantity", "value": 3},
		{"field": "rate", "value": "150.50"},
	} {
		rr = env.do(t, http.MethodPatch, base+"/items/"+itemID, edit)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodPut, base+"/items/"+itemID+"/custom/"+col.ID, map[string]any{"value": 12})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, base+"/items", nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	got := decode[sessionBody](t, env.do(t, http.MethodGet, base, nil))
	require.Len(t, got.Invoice.Items, 2)
	assert.True(t, got.Invoice.Total.Equal(decimal.RequireFromString("451.50")), got.Invoice.Total.String())
	assert.Equal(t, "2025-03-31", got.Invoice.Header.DueDate)

	rr = env.do(t, http.MethodPost, base+"/validate", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodPost, base+"/export", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="invoice-INV-7.pdf"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "451.50", rr.Header().Get("X-Invoice-Total"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF"))
	recordID := rr.Header().Get("X-Record-ID")
	require.NotEmpty(t, recordID)

	// Export ends the session.
	rr = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	list := decode[invoicesResponse](t, env.do(t, http.MethodGet, "/api/invoices", nil))
	require.Len(t, list.Records, 1)
	assert.Equal(t, core.StatusPending, list.Records[0].Status)
	assert.Equal(t, "Audit", list.Records[0].Description)
	assert.Equal(t, 1, list.Summary.Count)

	rr = env.do(t, http.MethodPatch, "/api/invoices/"+recordID, map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	list = decode[invoicesResponse](t, env.do(t, http.MethodGet, "/api/invoices?status=paid", nil))
	require.Len(t, list.Records, 1)
	assert.True(t, list.Summary.Outstanding.IsZero())
}

func TestExportFailureKeepsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.createSession(t)
	base := "/api/sessions/" + sess.ID

	rr := env.do(t, http.MethodPost, base+"/export", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Equal(t, "clientName", resp.Field)

	rr = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.createSession(t)
	base := "/api/sessions/" + sess.ID
	itemID := sess.Invoice.Items[0].ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
		field  string
	}{
		{"bad date", http.MethodPut, base + "/header", map[string]string{"issueDate": "03/01/2025"}, 422, "validation_failed", "issueDate"},
		{"bad category", http.MethodPut, base + "/header", map[string]string{"category": "travel"}, 422, "validation_failed", "category"},
		{"unknown field", http.MethodPatch, base + "/items/" + itemID, map[string]string{"field": "discount", "value": "1"}, 422, "validation_failed", ""},
		{"empty column name", http.MethodPost, base + "/columns", map[string]string{"name": " "}, 422, "validation_failed", "name"},
		{"bad column kind", http.MethodPost, base + "/columns", map[string]string{"name": "X", "kind": "date"}, 422, "validation_failed", "kind"},
		{"last item", http.MethodDelete, base + "/items/" + itemID, nil, 409, "last_item", ""},
		{"missing item", http.MethodPatch, base + "/items/nope", map[string]string{"field": "rate", "value": "1"}, 404, "not_found", ""},
		{"unknown column", http.MethodPut, base + "/items/" + itemID + "/custom/nope", map[string]string{"value": "x"}, 404, "not_found", ""},
		{"remove unknown column", http.MethodDelete, base + "/columns/nope", nil, 404, "not_found", ""},
		{"missing session", http.MethodGet, "/api/sessions/nope", nil, 404, "not_found", ""},
		{"malformed json", http.MethodPut, base + "/header", "{", 400, "bad_request", ""},
		{"unknown json field", http.MethodPut, base + "/header", map[string]string{"vat": "20"}, 400, "bad_request", ""},
		{"empty body", http.MethodPatch, base + "/items/" + itemID, nil, 400, "bad_request", ""},
		{"bad status filter", http.MethodGet, "/api/invoices?status=archived", nil, 422, "validation_failed", "status"},
		{"bad status update", http.MethodPatch, "/api/invoices/x", map[string]string{"status": "void"}, 422, "validation_failed", "status"},
		{"missing record", http.MethodPatch, "/api/invoices/x", map[string]string{"status": "paid"}, 404, "not_found", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			resp := decode[ErrorResponse](t, rr)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestRemoveColumnPrunesValues(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.createSession(t)
	base := "/api/sessions/" + sess.ID

	rr := env.do(t, http.MethodPost, base+"/columns", map[string]string{"name": "Ref"})
	require.Equal(t, http.StatusCreated, rr.Code)
	col := decode[struct {
		Column core.Column `json:"column"`
	}](t, rr).Column
	assert.Equal(t, core.KindText, col.Kind)

	rr = env.do(t, http.MethodDelete, base+"/columns/"+col.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[sessionBody](t, rr).Invoice.Columns)
}

func TestDiscardSession(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.createSession(t)

	rr := env.do(t, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodGet, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, decode[invoicesResponse](t, env.do(t, http.MethodGet, "/api/invoices", nil)).Records)
}

func TestNotify(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.createSession(t)
	base := "/api/sessions/" + sess.ID

	noEmail := map[string]string{}
	for k, v := range validHeader {
		noEmail[k] = v
	}
	noEmail["clientEmail"] = ""
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, base+"/header", noEmail).Code)

	rr := env.do(t, http.MethodPost, base+"/notify", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "clientEmail", decode[ErrorResponse](t, rr).Field)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, base+"/header", validHeader).Code)
	rr = env.do(t, http.MethodPost, base+"/notify", nil)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	require.Len(t, env.notifier.msgs, 1)
	msg := env.notifier.msgs[0]
	assert.Equal(t, "INV-7", msg.InvoiceNumber)
	assert.Equal(t, "billing@acme.test", msg.ClientEmail)
	assert.NotEmpty(t, msg.RecordID)
	assert.Equal(t, "invoice-INV-7.pdf", msg.ArtifactName)

	// Notify leaves the session open.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, base, nil).Code)
}

func TestNotifyWithoutNotifier(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Controller = submission.NewController(submission.Options{}, nil, nil, log.Discard())
	})
	sess := env.createSession(t)
	base := "/api/sessions/" + sess.ID
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, base+"/header", validHeader).Code)

	rr := env.do(t, http.MethodPost, base+"/notify", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", decode[ErrorResponse](t, rr).Code)
}

func TestRecordsUnavailable(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Records = nil })
	rr := env.do(t, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestBearerAuth(t *testing.T) {
	secret := []byte("0123456789abcdef0123")
	env := newTestEnv(t, func(d *Deps) { d.JWTSecret = secret })

	rr := env.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", decode[ErrorResponse](t, rr).Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	// Health stays public.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", nil).Code)

	alice, err := auth.NewToken(secret, "alice", time.Hour, time.Now())
	require.NoError(t, err)
	bob, err := auth.NewToken(secret, "bob", time.Hour, time.Now())
	require.NoError(t, err)

	sess := env.createSession(t, "Authorization", "Bearer "+alice)
	rr = env.do(t, http.MethodGet, "/api/sessions/"+sess.ID, nil, "Authorization", "Bearer "+alice)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodGet, "/api/sessions/"+sess.ID, nil, "Authorization", "Bearer "+bob)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecordOwnership(t *testing.T) {
	secret := []byte("0123456789abcdef0123")
	env := newTestEnv(t, func(d *Deps) { d.JWTSecret = secret })
	id, err := env.store.Save(context.Background(), core.Record{
		Owner: "alice", InvoiceNumber: "A-1", ClientName: "Acme",
		Amount: decimal.NewFromInt(10), Status: core.StatusPending,
	})
	require.NoError(t, err)

	bob, err := auth.NewToken(secret, "bob", time.Hour, time.Now())
	require.NoError(t, err)
	rr := env.do(t, http.MethodPatch, "/api/invoices/"+id, map[string]string{"status": "paid"}, "Authorization", "Bearer "+bob)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, decode[invoicesResponse](t, env.do(t, http.MethodGet, "/api/invoices", nil, "Authorization", "Bearer "+bob)).Records)

	alice, err := auth.NewToken(secret, "alice", time.Hour, time.Now())
	require.NoError(t, err)
	rr = env.do(t, http.MethodPatch, "/api/invoices/"+id, map[string]string{"status": "paid"}, "Authorization", "Bearer "+alice)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.RateLimit = ratelimit.Config{RequestsPerMinute: 2} })

	env.createSession(t)
	env.createSession(t)
	rr := env.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", decode[ErrorResponse](t, rr).Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/invoices", nil).Code)
}

func TestProfileRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rr).Code)

	rr = env.do(t, http.MethodPut, "/api/profile", map[string]string{
		"companyName": "Northwind Studio",
		"email":       "billing@northwind.test",
		"currency":    "eur",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	p := decode[core.Profile](t, rr)
	assert.Equal(t, "Northwind Studio", p.CompanyName)
	assert.Equal(t, "EUR", p.Currency)
	assert.False(t, p.UpdatedAt.IsZero())

	rr = env.do(t, http.MethodPut, "/api/profile", map[string]string{"phone": "+44 117 000 0000"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	p = decode[core.Profile](t, env.do(t, http.MethodGet, "/api/profile", nil))
	assert.Equal(t, "Northwind Studio", p.CompanyName, "absent fields are kept")
	assert.Equal(t, "+44 117 000 0000", p.Phone)

	rr = env.do(t, http.MethodPut, "/api/profile", map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "email", decode[ErrorResponse](t, rr).Field)

	rr = env.do(t, http.MethodPut, "/api/profile", `{"companyName":"X","tagline":"y"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// The profile currency drives the notify message.
	sess := env.createSession(t)
	base := "/api/sessions/" + sess.ID
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, base+"/header", validHeader).Code)
	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, base+"/notify", nil).Code)
	require.Len(t, env.notifier.msgs, 1)
	assert.Equal(t, "€", env.notifier.msgs[0].Currency)
}

func TestProfilesArePerOwner(t *testing.T) {
	secret := []byte("0123456789abcdef0123")
	env := newTestEnv(t, func(d *Deps) { d.JWTSecret = secret })
	alice, err := auth.NewToken(secret, "alice", time.Hour, time.Now())
	require.NoError(t, err)
	bob, err := auth.NewToken(secret, "bob", time.Hour, time.Now())
	require.NoError(t, err)

	rr := env.do(t, http.MethodPut, "/api/profile", map[string]string{"companyName": "Alice Co"}, "Authorization", "Bearer "+alice)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/profile", nil, "Authorization", "Bearer "+bob)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNotifyRejectsPathLikeEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := env.createSession(t)
	base := "/api/sessions/" + sess.ID

	header := map[string]string{}
	for k, v := range validHeader {
		header[k] = v
	}
	header["clientEmail"] = ".."
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, base+"/header", header).Code)

	rr := env.do(t, http.MethodPost, base+"/notify", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "clientEmail", decode[ErrorResponse](t, rr).Field)
	assert.Empty(t, env.notifier.msgs)
	assert.Empty(t, decode[invoicesResponse](t, env.do(t, http.MethodGet, "/api/invoices", nil)).Records)
}

func TestNewServerRejectsBadProxy(t *testing.T) {
	_, err := NewServer(":0", Deps{TrustedProxies: []string{"nope"}, Logger: log.Discard()})
	assert.Error(t, err)
}
