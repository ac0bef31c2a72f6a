package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dejure-gateway/internal/model"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Get(ctx context.Context, key string) (model.Session, error) {
	var (
		token   string
		rawUser []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT token, user_profile FROM gateway_sessions
		 WHERE session_key = $1 AND expires_at > now()`, key).
		Scan(&token, &rawUser)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Session{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("find session: %w", err)
	}

	sess := model.Session{Token: token}
	if len(rawUser) > 0 {
		var user model.UserProfile
		if err := json.Unmarshal(rawUser, &user); err != nil {
			return model.Session{}, fmt.Errorf("decode session user: %w", err)
		}
		sess.User = &user
	}

	return sess, nil
}

func (r *SessionRepository) Put(ctx context.Context, key string, sess model.Session, ttl time.Duration) error {
	var rawUser []byte
	if sess.User != nil {
		encoded, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		rawUser = encoded
	}

	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO gateway_sessions (session_key, token, user_profile, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $4, $5)
		 ON CONFLICT (session_key) DO UPDATE
		 SET token = EXCLUDED.token,
		     user_profile = EXCLUDED.user_profile,
		     updated_at = EXCLUDED.updated_at,
		     expires_at = EXCLUDED.expires_at`,
		key, sess.Token, rawUser, now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM gateway_sessions WHERE session_key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM gateway_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
