package usage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"paperjet/internal/platform/models"
)

// Ledger is the append-only record of generation attempts. One event per
// attempt, success or failure; quota consumption and billing summaries
// are derived from it, never stored separately.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append durably writes one event. Missing id/timestamp are filled in
// and pdf_bytes is clamped to be non-negative regardless of caller
// input. A storage error is returned loudly, never swallowed.
func (l *Ledger) Append(event *models.UsageEvent) error {
	if event.ID == "" {
		event.ID = "evt_" + uuid.New().String()
	}
	if event.CreatedAt == 0 {
		event.CreatedAt = time.Now().Unix()
	}
	if event.PDFBytes < 0 {
		event.PDFBytes = 0
	}

	_, err := l.db.Exec(`
		INSERT INTO usage_events (id, api_key_id, account_id, request_mode, success, status_code, pdf_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.APIKeyID, event.AccountID, event.RequestMode,
		event.Success, event.StatusCode, event.PDFBytes, event.CreatedAt)
	return err
}

// CountSuccessful counts success=true events for the account inside
// [monthStart, monthStart + 1 calendar month).
func (l *Ledger) CountSuccessful(accountID string, monthStartUTC time.Time) (int, error) {
	start, end, err := monthWindow(monthStartUTC)
	if err != nil {
		return 0, err
	}

	var count int
	err = l.db.QueryRow(`
		SELECT COUNT(*) FROM usage_events
		WHERE account_id = ? AND success = 1 AND created_at >= ? AND created_at < ?
	`, accountID, start.Unix(), end.Unix()).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Summarize aggregates the account's month in a single pass. A window
// with no events yields the all-zero summary, not an error.
func (l *Ledger) Summarize(accountID string, monthStartUTC time.Time) (*models.UsageSummary, error) {
	start, end, err := monthWindow(monthStartUTC)
	if err != nil {
		return nil, err
	}

	summary := &models.UsageSummary{}
	err = l.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pdf_bytes), 0)
		FROM usage_events
		WHERE account_id = ? AND created_at >= ? AND created_at < ?
	`, accountID, start.Unix(), end.Unix()).Scan(
		&summary.TotalRequests, &summary.SuccessfulRequests,
		&summary.FailedRequests, &summary.TotalPDFBytes,
	)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
