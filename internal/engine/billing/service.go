package billing

import (
	"errors"
	"strings"
	"time"

	"paperjet/internal/engine/usage"
	"paperjet/internal/platform/models"
)

var ErrKeyNotFound = errors.New("api key not found")

// Service composes the store and ledger into the operator-facing
// operations: provisioning, quota adjustment and usage reporting. It is
// only ever driven by the admin surface, never by the generation path.
type Service struct {
	store  *Store
	ledger *usage.Ledger
}

func NewService(store *Store, ledger *usage.Ledger) *Service {
	return &Service{store: store, ledger: ledger}
}

// Provision creates an account and issues its first key in one step.
// A nil quota picks the plan's default. Returns the raw secret, which
// is shown to the caller exactly once.
func (s *Service) Provision(accountName, plan string, monthlyQuota *int) (string, int, error) {
	normalized := strings.ToLower(strings.TrimSpace(plan))
	defaultQuota, ok := models.DefaultPlanQuotas[normalized]
	if !ok {
		return "", 0, ErrInvalidPlan
	}

	quota := defaultQuota
	if monthlyQuota != nil {
		quota = *monthlyQuota
	}

	accountID, err := s.store.CreateAccount(accountName, normalized, quota)
	if err != nil {
		return "", 0, err
	}
	_, rawSecret, err := s.store.IssueAPIKey(accountID)
	if err != nil {
		return "", 0, err
	}
	return rawSecret, quota, nil
}

func (s *Service) SetQuota(rawSecret string, monthlyQuota int) error {
	return s.store.SetQuota(rawSecret, monthlyQuota)
}

type UsageReport struct {
	AccountName  string `json:"account_name"`
	Plan         string `json:"plan"`
	MonthlyQuota int    `json:"monthly_quota"`
	Month        string `json:"month"`
	models.UsageSummary
}

// Report resolves the inspected key and merges its month summary with
// the account metadata. Unlike the request-path gate, an unknown secret
// here is ErrKeyNotFound: this is an administrative lookup, not an
// authorization decision.
func (s *Service) Report(rawSecret string, monthStartUTC time.Time) (*UsageReport, error) {
	rec, err := s.store.ResolveBySecret(rawSecret)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrKeyNotFound
	}

	summary, err := s.ledger.Summarize(rec.AccountID, monthStartUTC)
	if err != nil {
		return nil, err
	}

	return &UsageReport{
		AccountName:  rec.AccountName,
		Plan:         rec.Plan,
		MonthlyQuota: rec.MonthlyQuota,
		Month:        monthStartUTC.Format("2006-01"),
		UsageSummary: *summary,
	}, nil
}
