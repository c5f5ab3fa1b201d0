package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-builder/internal/shared/storage/kv"
)

// Repo persists sessions.
type Repo interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type kvRepo struct {
	store kv.Store
	ttl   time.Duration
}

// NewRepo returns a session repo over the shared kv store. Every save
// refreshes the idle TTL, so active sessions never expire mid-flow.
func NewRepo(store kv.Store, ttl time.Duration) Repo {
	return &kvRepo{store: store, ttl: ttl}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (r *kvRepo) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.store.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *kvRepo) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.store.Set(ctx, sessionKey(s.ID), raw, r.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *kvRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, sessionKey(id)); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
