package users

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UpsertUser struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// Repo resolves external user identities to internal user ids.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (string, error) {
	if strings.TrimSpace(u.ExternalID) == "" {
		return "", fmt.Errorf("external_id required")
	}

	const q = `
insert into users (external_id, email, display_name, updated_at)
values ($1, nullif($2,''), nullif($3,''), now())
on conflict (external_id) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  updated_at = now()
returning id::text;
`
	var id string
	if err := r.db.QueryRow(ctx, q, u.ExternalID, u.Email, u.DisplayName).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// MemoryRepo is the in-process counterpart of Repo, used with the memory
// diagram store.
type MemoryRepo struct {
	mu  sync.Mutex
	ids map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{ids: map[string]string{}}
}

func (r *MemoryRepo) EnsureUser(_ context.Context, u UpsertUser) (string, error) {
	if strings.TrimSpace(u.ExternalID) == "" {
		return "", fmt.Errorf("external_id required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[u.ExternalID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	r.ids[u.ExternalID] = id
	return id, nil
}
