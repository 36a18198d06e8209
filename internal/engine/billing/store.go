package billing

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"paperjet/internal/platform/models"
)

var (
	ErrInvalidPlan  = errors.New("unsupported plan")
	ErrInvalidQuota = errors.New("monthly quota must be >= 0")
)

type Store struct {
	db     *sql.DB
	hasher *Hasher
}

func NewStore(db *sql.DB, hasher *Hasher) *Store {
	return &Store{db: db, hasher: hasher}
}

func (s *Store) CreateAccount(name, plan string, monthlyQuota int) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(plan))
	if _, ok := models.DefaultPlanQuotas[normalized]; !ok {
		return "", ErrInvalidPlan
	}
	if monthlyQuota < 0 {
		return "", ErrInvalidQuota
	}

	id := "acct_" + uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO accounts (id, name, plan, monthly_quota, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, id, strings.TrimSpace(name), normalized, monthlyQuota, time.Now().Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}

// IssueAPIKey mints a fresh raw secret for the account and stores only
// its digest and display prefix. The raw secret is returned once and is
// not retrievable afterwards.
func (s *Store) IssueAPIKey(accountID string) (string, string, error) {
	rawSecret, err := GenerateSecret()
	if err != nil {
		return "", "", err
	}

	id := "key_" + uuid.New().String()
	_, err = s.db.Exec(`
		INSERT INTO api_keys (id, account_id, key_prefix, key_hash, is_active, created_at, revoked_at)
		VALUES (?, ?, ?, ?, 1, ?, NULL)
	`, id, accountID, SecretPrefix(rawSecret), s.hasher.Hash(rawSecret), time.Now().Unix())
	if err != nil {
		return "", "", err
	}
	return id, rawSecret, nil
}

// ResolveBySecret hashes the presented secret and joins the matching key
// to its owning account. An unknown secret is not an error; it returns
// nil, nil and the caller branches on it.
func (s *Store) ResolveBySecret(rawSecret string) (*models.APIKeyRecord, error) {
	rec := &models.APIKeyRecord{}
	err := s.db.QueryRow(`
		SELECT k.id, a.id, a.name, a.plan, a.monthly_quota, a.is_active, k.is_active, k.key_prefix
		FROM api_keys k
		JOIN accounts a ON a.id = k.account_id
		WHERE k.key_hash = ?
	`, s.hasher.Hash(rawSecret)).Scan(
		&rec.APIKeyID, &rec.AccountID, &rec.AccountName, &rec.Plan,
		&rec.MonthlyQuota, &rec.AccountActive, &rec.APIKeyActive, &rec.KeyPrefix,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// SetQuota updates the owning account's monthly quota. A secret that
// does not resolve is a silent no-op; callers needing existence
// confirmation resolve first.
func (s *Store) SetQuota(rawSecret string, monthlyQuota int) error {
	if monthlyQuota < 0 {
		return ErrInvalidQuota
	}
	_, err := s.db.Exec(`
		UPDATE accounts SET monthly_quota = ?
		WHERE id IN (SELECT account_id FROM api_keys WHERE key_hash = ?)
	`, monthlyQuota, s.hasher.Hash(rawSecret))
	return err
}

func (s *Store) SetKeyActive(keyID string, active bool) error {
	if active {
		_, err := s.db.Exec(`UPDATE api_keys SET is_active = 1, revoked_at = NULL WHERE id = ?`, keyID)
		return err
	}
	_, err := s.db.Exec(`UPDATE api_keys SET is_active = 0, revoked_at = ? WHERE id = ?`, time.Now().Unix(), keyID)
	return err
}

func (s *Store) SetAccountActive(accountID string, active bool) error {
	_, err := s.db.Exec(`UPDATE accounts SET is_active = ? WHERE id = ?`, active, accountID)
	return err
}

// PurgeAll wipes every account, key and usage event. Test isolation
// only; this must never be reachable over the network interface.
func (s *Store) PurgeAll() error {
	_, err := s.db.Exec(`
		DELETE FROM usage_events;
		DELETE FROM api_keys;
		DELETE FROM accounts;
	`)
	return err
}
