package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestReplicateAPIToken(t *testing.T) {
	store := NewStore(&stubExecutor{token: " r8_abc123 "})
	token, err := store.ReplicateAPIToken(context.Background())
	if err != nil {
		t.Fatalf("ReplicateAPIToken error: %v", err)
	}
	if token != "r8_abc123" {
		t.Fatalf("expected r8_abc123, got %q", token)
	}
}

func TestReplicateAPIToken_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	token, err := store.ReplicateAPIToken(context.Background())
	if err != nil {
		t.Fatalf("ReplicateAPIToken error: %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
}

func TestSetReplicateAPIToken(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	store.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	if err := store.SetReplicateAPIToken(context.Background(), "secret", "ops@example.com"); err != nil {
		t.Fatalf("SetReplicateAPIToken error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[0].(string); !ok || v != ProviderReplicate {
		t.Fatalf("expected provider argument, got %T %v", exec.exec.args[0], exec.exec.args[0])
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
	raw, ok := exec.exec.args[2].([]byte)
	if !ok {
		t.Fatalf("expected json properties, got %T", exec.exec.args[2])
	}
	var props map[string]string
	if err := json.Unmarshal(raw, &props); err != nil {
		t.Fatalf("decode properties: %v", err)
	}
	if props["rotated_by"] != "ops@example.com" || props["rotated_at"] != "2025-03-01T12:00:00Z" {
		t.Fatalf("unexpected properties: %v", props)
	}
}

func TestSetReplicateAPITokenEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetReplicateAPIToken(context.Background(), " ", ""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestResolveReplicateToken(t *testing.T) {
	ctx := context.Background()
	token, err := ResolveReplicateToken(ctx, " from-env ", NewStore(&stubExecutor{token: "stored"}))
	if err != nil || token != "from-env" {
		t.Fatalf("configured token: %q %v", token, err)
	}
	token, err = ResolveReplicateToken(ctx, "", NewStore(&stubExecutor{token: "stored"}))
	if err != nil || token != "stored" {
		t.Fatalf("stored token: %q %v", token, err)
	}
	token, err = ResolveReplicateToken(ctx, "", nil)
	if err != nil || token != "" {
		t.Fatalf("no store: %q %v", token, err)
	}
}
