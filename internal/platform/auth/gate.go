package auth

import (
	"fmt"
	"net/http"
	"time"

	"paperjet/internal/engine/billing"
	"paperjet/internal/engine/usage"
	"paperjet/internal/platform/models"
)

// Denial reasons, in the order the gate checks them.
const (
	DenyMissingCredential  = "MissingCredential"
	DenyInvalidCredential  = "InvalidCredential"
	DenyInactiveCredential = "InactiveCredential"
	DenyQuotaExceeded      = "QuotaExceeded"
	DenyStorageFailure     = "StorageFailure"
)

type Denial struct {
	Reason  string
	Status  int
	Message string

	// Record and Used are populated for quota denials, where the secret
	// did resolve and the attempt still has to reach the ledger.
	Record        *models.APIKeyRecord
	Used          int
	MonthStartUTC time.Time
}

// Context is the per-request authorization result. Ephemeral, never
// persisted.
type Context struct {
	Record                      *models.APIKeyRecord
	SuccessfulRequestsThisMonth int
	MonthStartUTC               time.Time
}

// Gate decides whether a presented secret may generate a PDF right now:
// resolve the key, check active flags, compare this month's successful
// count against the account quota. The quota read and the later ledger
// append are not one transaction; concurrent bursts can overshoot by at
// most the number of in-flight requests, which is accepted for a
// monthly soft ceiling.
type Gate struct {
	store  *billing.Store
	ledger *usage.Ledger
	now    func() time.Time
}

func NewGate(store *billing.Store, ledger *usage.Ledger) *Gate {
	return &Gate{store: store, ledger: ledger, now: time.Now}
}

func (g *Gate) Authorize(rawSecret string) (*Context, *Denial) {
	if rawSecret == "" {
		return nil, &Denial{
			Reason:  DenyMissingCredential,
			Status:  http.StatusUnauthorized,
			Message: "Missing API key. Pass it in the X-API-Key header.",
		}
	}

	record, err := g.store.ResolveBySecret(rawSecret)
	if err != nil {
		// a storage failure denies, it never silently authorizes
		return nil, &Denial{
			Reason:  DenyStorageFailure,
			Status:  http.StatusInternalServerError,
			Message: "Authorization storage unavailable.",
		}
	}
	if record == nil {
		return nil, &Denial{
			Reason:  DenyInvalidCredential,
			Status:  http.StatusUnauthorized,
			Message: "Invalid API key.",
		}
	}

	if !record.AccountActive || !record.APIKeyActive {
		return nil, &Denial{
			Reason:  DenyInactiveCredential,
			Status:  http.StatusForbidden,
			Message: "API key is inactive.",
		}
	}

	monthStart := usage.MonthStart(g.now())
	used, err := g.ledger.CountSuccessful(record.AccountID, monthStart)
	if err != nil {
		return nil, &Denial{
			Reason:  DenyStorageFailure,
			Status:  http.StatusInternalServerError,
			Message: "Authorization storage unavailable.",
		}
	}

	if used >= record.MonthlyQuota {
		return nil, &Denial{
			Reason: DenyQuotaExceeded,
			Status: http.StatusTooManyRequests,
			Message: fmt.Sprintf(
				"Monthly PDF quota exceeded. Plan quota=%d, used=%d.",
				record.MonthlyQuota, used),
			Record:        record,
			Used:          used,
			MonthStartUTC: monthStart,
		}
	}

	return &Context{
		Record:                      record,
		SuccessfulRequestsThisMonth: used,
		MonthStartUTC:               monthStart,
	}, nil
}
