// Package credentials keeps backend API tokens in the integration_tokens
// table so they can be rotated without redeploying.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

const (
	ProviderReplicate = "replicate"
)

type Store struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, now: time.Now}
}

// EnsureSchema creates the integration_tokens table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QEnsureIntegrationTokensSchema); err != nil {
		return fmt.Errorf("credentials: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) ReplicateAPIToken(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderReplicate)
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetReplicateAPIToken(ctx context.Context, token, rotatedBy string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("replicate api token is required")
	}
	props := map[string]any{"rotated_at": s.now().UTC().Format(time.RFC3339)}
	if rotatedBy = strings.TrimSpace(rotatedBy); rotatedBy != "" {
		props["rotated_by"] = rotatedBy
	}
	return s.upsert(ctx, ProviderReplicate, token, props)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// ResolveReplicateToken prefers the configured token and falls back to the
// stored one.
func ResolveReplicateToken(ctx context.Context, configured string, store *Store) (string, error) {
	if token := strings.TrimSpace(configured); token != "" {
		return token, nil
	}
	if store == nil {
		return "", nil
	}
	return store.ReplicateAPIToken(ctx)
}
