package models

const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// DefaultPlanQuotas is the monthly request quota assigned at account
// creation when no explicit quota is given. Quota is independently
// mutable afterwards; the plan only picks the starting value.
var DefaultPlanQuotas = map[string]int{
	PlanFree:     100,
	PlanPro:      2000,
	PlanBusiness: 20000,
}

type Account struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Plan         string `json:"plan"`
	MonthlyQuota int    `json:"monthly_quota"`
	Active       bool   `json:"active"`
	CreatedAt    int64  `json:"created_at"`
}

type APIKey struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	KeyHash   string `json:"-"`
	KeyPrefix string `json:"key_prefix"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
	RevokedAt *int64 `json:"revoked_at,omitempty"`
}

// APIKeyRecord is a key joined to its owning account, as resolved from a
// presented raw secret. The raw secret itself is never stored.
type APIKeyRecord struct {
	APIKeyID      string `json:"api_key_id"`
	AccountID     string `json:"account_id"`
	AccountName   string `json:"account_name"`
	Plan          string `json:"plan"`
	MonthlyQuota  int    `json:"monthly_quota"`
	AccountActive bool   `json:"account_active"`
	APIKeyActive  bool   `json:"api_key_active"`
	KeyPrefix     string `json:"key_prefix"`
}

const (
	ModeHTMLUpload     = "html_upload"
	ModeTemplateUpload = "template_upload"
	ModeUnknown        = "unknown"
)

type UsageEvent struct {
	ID          string `json:"id"`
	APIKeyID    string `json:"api_key_id"`
	AccountID   string `json:"account_id"`
	RequestMode string `json:"request_mode"`
	Success     bool   `json:"success"`
	StatusCode  int    `json:"status_code"`
	PDFBytes    int64  `json:"pdf_bytes"`
	CreatedAt   int64  `json:"created_at"`
}

type UsageSummary struct {
	TotalRequests      int   `json:"total_requests"`
	SuccessfulRequests int   `json:"successful_requests"`
	FailedRequests     int   `json:"failed_requests"`
	TotalPDFBytes      int64 `json:"total_pdf_bytes"`
}
