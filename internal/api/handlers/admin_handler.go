package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"paperjet/internal/engine/billing"
	"paperjet/internal/engine/usage"
	apierrors "paperjet/internal/pkg/errors"
)

type AdminHandler struct {
	svc *billing.Service
}

func NewAdminHandler(svc *billing.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// CreateAPIKey provisions an account and returns the raw key. This is
// the only response that ever carries the secret.
func (h *AdminHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountName  string `json:"account_name"`
		Plan         string `json:"plan"`
		MonthlyQuota *int   `json:"monthly_quota"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	name := strings.TrimSpace(req.AccountName)
	if len(name) < 2 || len(name) > 120 {
		apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.ErrCodeInvalidInput,
			"account_name must be between 2 and 120 characters.", nil)
		return
	}
	if req.MonthlyQuota != nil && *req.MonthlyQuota < 0 {
		apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.ErrCodeInvalidInput,
			"monthly_quota must be >= 0.", nil)
		return
	}

	rawSecret, quota, err := h.svc.Provision(name, req.Plan, req.MonthlyQuota)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidPlan) {
			apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.ErrCodeInvalidInput,
				"plan must be one of: free, pro, business.", nil)
			return
		}
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to provision account.", nil)
		return
	}

	response := struct {
		AccountName  string `json:"account_name"`
		Plan         string `json:"plan"`
		MonthlyQuota int    `json:"monthly_quota"`
		APIKey       string `json:"api_key"`
	}{
		AccountName:  name,
		Plan:         strings.ToLower(strings.TrimSpace(req.Plan)),
		MonthlyQuota: quota,
		APIKey:       rawSecret,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// Usage reports an account's month, defaulting to the current UTC
// calendar month.
func (h *AdminHandler) Usage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	apiKey := query.Get("api_key")
	if len(apiKey) < 10 {
		apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.ErrCodeInvalidInput,
			"api_key must be at least 10 characters.", nil)
		return
	}

	monthStart := usage.MonthStart(time.Now())
	if month := query.Get("month"); month != "" {
		parsed, err := usage.ParseMonth(month)
		if err != nil {
			apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.ErrCodeInvalidInput,
				"month must be in YYYY-MM format.", nil)
			return
		}
		monthStart = parsed
	}

	report, err := h.svc.Report(apiKey, monthStart)
	if err != nil {
		if errors.Is(err, billing.ErrKeyNotFound) {
			apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "API key not found.", nil)
			return
		}
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to load usage.", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// SetQuota adjusts the monthly quota for the account owning a key. An
// unknown key is a silent no-op by store contract; admins wanting
// existence confirmation use the usage endpoint first.
func (h *AdminHandler) SetQuota(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey       string `json:"api_key"`
		MonthlyQuota *int   `json:"monthly_quota"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.APIKey == "" || req.MonthlyQuota == nil {
		apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.ErrCodeInvalidInput,
			"api_key and monthly_quota are required.", nil)
		return
	}

	if err := h.svc.SetQuota(req.APIKey, *req.MonthlyQuota); err != nil {
		if errors.Is(err, billing.ErrInvalidQuota) {
			apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.ErrCodeInvalidInput,
				"monthly_quota must be >= 0.", nil)
			return
		}
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to update quota.", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
