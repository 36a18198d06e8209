package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestHealth(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	handler := NewHealthHandler(db)

	rec := httptest.NewRecorder()
	handler.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON body: %v", err)
	}
	if body.Status != "healthy" || body.Checks["database"] != "healthy" {
		t.Errorf("Unexpected health report: %+v", body)
	}

	// a dead database degrades the check
	db.Close()
	rec = httptest.NewRecorder()
	handler.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 with closed db, got %d", rec.Code)
	}
}
