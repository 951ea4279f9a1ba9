package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/rpggio/portfolio-kpi/internal/repository"
)

// APIKeyRepository resolves bearer tokens to tenants
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// ResolveTenant returns the tenant owning token and records its use.
func (r *APIKeyRepository) ResolveTenant(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", repository.ErrUnauthorized
	}
	hash := HashToken(token)

	var tenantID string
	err := r.db.QueryRowContext(ctx, `SELECT tenant_id FROM api_keys WHERE key_hash = ?`, hash).Scan(&tenantID)
	if err == sql.ErrNoRows || (err == nil && tenantID == "") {
		return "", repository.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = CURRENT_TIMESTAMP WHERE key_hash = ?`, hash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return tenantID, nil
}

// AddKey stores the hash of token for tenantID.
func (r *APIKeyRepository) AddKey(ctx context.Context, tenantID, token, description string) error {
	if tenantID == "" || token == "" {
		return fmt.Errorf("%w: tenant id and token are required", repository.ErrInvalidInput)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, tenant_id, description) VALUES (?, ?, ?)`,
		HashToken(token), tenantID, description)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: api key already registered", repository.ErrInvalidInput)
		}
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// HashToken returns the hex sha256 of token as stored in api_keys.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
