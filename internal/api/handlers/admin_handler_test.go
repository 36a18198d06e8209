package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"paperjet/internal/engine/billing"
	"paperjet/internal/engine/usage"
	"paperjet/internal/platform/database"
	"paperjet/internal/platform/models"
)

type adminFixture struct {
	db      *sql.DB
	store   *billing.Store
	ledger  *usage.Ledger
	svc     *billing.Service
	handler *AdminHandler
}

func setupAdmin(t *testing.T) *adminFixture {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.ApplySchema(db))

	store := billing.NewStore(db, billing.NewHasher("test-salt"))
	ledger := usage.NewLedger(db)
	svc := billing.NewService(store, ledger)
	return &adminFixture{db: db, store: store, ledger: ledger, svc: svc, handler: NewAdminHandler(svc)}
}

func (f *adminFixture) call(handler http.HandlerFunc, method, target string, body map[string]any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAdmin_CreateAPIKey(t *testing.T) {
	f := setupAdmin(t)

	rec := f.call(f.handler.CreateAPIKey, http.MethodPost, "/api/v1/admin/api-keys",
		map[string]any{"account_name": "Acme Corp", "plan": "pro"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		AccountName  string `json:"account_name"`
		Plan         string `json:"plan"`
		MonthlyQuota int    `json:"monthly_quota"`
		APIKey       string `json:"api_key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Acme Corp", resp.AccountName)
	assert.Equal(t, "pro", resp.Plan)
	assert.Equal(t, 2000, resp.MonthlyQuota)
	require.NotEmpty(t, resp.APIKey)

	// the returned secret resolves against the store
	keyRec, err := f.store.ResolveBySecret(resp.APIKey)
	require.NoError(t, err)
	require.NotNil(t, keyRec)
	assert.Equal(t, "Acme Corp", keyRec.AccountName)
}

func TestAdmin_CreateAPIKeyExplicitQuota(t *testing.T) {
	f := setupAdmin(t)

	rec := f.call(f.handler.CreateAPIKey, http.MethodPost, "/api/v1/admin/api-keys",
		map[string]any{"account_name": "Acme Corp", "plan": "free", "monthly_quota": 5})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		MonthlyQuota int `json:"monthly_quota"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.MonthlyQuota)
}

func TestAdmin_CreateAPIKeyValidation(t *testing.T) {
	f := setupAdmin(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"invalid plan", map[string]any{"account_name": "Acme Corp", "plan": "enterprise"}},
		{"short name", map[string]any{"account_name": "A", "plan": "free"}},
		{"negative quota", map[string]any{"account_name": "Acme Corp", "plan": "free", "monthly_quota": -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.call(f.handler.CreateAPIKey, http.MethodPost, "/api/v1/admin/api-keys", tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, "INVALID_INPUT", errCode(t, rec))
		})
	}
}

func TestAdmin_Usage(t *testing.T) {
	f := setupAdmin(t)

	apiKey, _, err := f.svc.Provision("Acme Corp", "pro", nil)
	require.NoError(t, err)
	keyRec, err := f.store.ResolveBySecret(apiKey)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, f.ledger.Append(&models.UsageEvent{
		APIKeyID: keyRec.APIKeyID, AccountID: keyRec.AccountID,
		RequestMode: models.ModeHTMLUpload, Success: true, StatusCode: 200,
		PDFBytes: 2048, CreatedAt: now.Unix(),
	}))

	rec := f.call(f.handler.Usage, http.MethodGet, "/api/v1/admin/usage?api_key="+apiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report billing.UsageReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "Acme Corp", report.AccountName)
	assert.Equal(t, models.PlanPro, report.Plan)
	assert.Equal(t, 2000, report.MonthlyQuota)
	assert.Equal(t, now.Format("2006-01"), report.Month)
	assert.Equal(t, 1, report.TotalRequests)
	assert.Equal(t, 1, report.SuccessfulRequests)
	assert.Equal(t, 0, report.FailedRequests)
	assert.Equal(t, int64(2048), report.TotalPDFBytes)
}

func TestAdmin_UsageExplicitMonth(t *testing.T) {
	f := setupAdmin(t)

	apiKey, _, err := f.svc.Provision("Acme Corp", "free", nil)
	require.NoError(t, err)

	// an empty past month reports zeros, not an error
	rec := f.call(f.handler.Usage, http.MethodGet, "/api/v1/admin/usage?api_key="+apiKey+"&month=2024-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report billing.UsageReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "2024-02", report.Month)
	assert.Equal(t, 0, report.TotalRequests)
}

func TestAdmin_UsageValidation(t *testing.T) {
	f := setupAdmin(t)

	apiKey, _, err := f.svc.Provision("Acme Corp", "free", nil)
	require.NoError(t, err)

	rec := f.call(f.handler.Usage, http.MethodGet, "/api/v1/admin/usage?api_key=short", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.call(f.handler.Usage, http.MethodGet, "/api/v1/admin/usage?api_key="+apiKey+"&month=February", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errCode(t, rec))

	rec = f.call(f.handler.Usage, http.MethodGet, "/api/v1/admin/usage?api_key=0123456789-not-real", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errCode(t, rec))
}

func TestAdmin_SetQuota(t *testing.T) {
	f := setupAdmin(t)

	apiKey, _, err := f.svc.Provision("Acme Corp", "free", nil)
	require.NoError(t, err)

	rec := f.call(f.handler.SetQuota, http.MethodPatch, "/api/v1/admin/quota",
		map[string]any{"api_key": apiKey, "monthly_quota": 500})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	keyRec, err := f.store.ResolveBySecret(apiKey)
	require.NoError(t, err)
	assert.Equal(t, 500, keyRec.MonthlyQuota)
}

func TestAdmin_SetQuotaValidation(t *testing.T) {
	f := setupAdmin(t)

	apiKey, _, err := f.svc.Provision("Acme Corp", "free", nil)
	require.NoError(t, err)

	rec := f.call(f.handler.SetQuota, http.MethodPatch, "/api/v1/admin/quota",
		map[string]any{"api_key": apiKey})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.call(f.handler.SetQuota, http.MethodPatch, "/api/v1/admin/quota",
		map[string]any{"monthly_quota": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.call(f.handler.SetQuota, http.MethodPatch, "/api/v1/admin/quota",
		map[string]any{"api_key": apiKey, "monthly_quota": -5})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errCode(t, rec))
}
