package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gestorescolar/tareas-api/internal/models"
)

// ErrSessionNotFound is returned when no persisted session exists for the
// matricula, either because it never existed or its TTL elapsed.
var ErrSessionNotFound = errors.New("session not found")

const (
	sessionKeyPrefix  = "session:"
	activityKeyPrefix = "session_activity:"
	attemptsKeyPrefix = "login_attempts:"
)

// SessionRepository stores session records, the sliding activity window and
// the failed-login counters in Redis.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Save persists the session record under the matricula key.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+session.Matricula, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get returns the persisted session for a matricula.
func (r *SessionRepository) Get(ctx context.Context, matricula string) (*models.Session, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+matricula).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete drops the session and its activity marker. Deleting an absent
// session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, matricula string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+matricula, activityKeyPrefix+matricula).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Touch refreshes the sliding activity window. While requests keep arriving
// within the window the key never expires; once it does the session is
// treated as idle and forced out.
func (r *SessionRepository) Touch(ctx context.Context, matricula string, window time.Duration) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := r.client.Set(ctx, activityKeyPrefix+matricula, now, window).Err(); err != nil {
		return fmt.Errorf("touch session activity: %w", err)
	}
	return nil
}

// IsActive reports whether the activity window is still open.
func (r *SessionRepository) IsActive(ctx context.Context, matricula string) (bool, error) {
	n, err := r.client.Exists(ctx, activityKeyPrefix+matricula).Result()
	if err != nil {
		return false, fmt.Errorf("check session activity: %w", err)
	}
	return n > 0, nil
}

// RecordFailedAttempt increments the failed-login counter, arming the
// lockout window on the first failure, and returns the running count.
func (r *SessionRepository) RecordFailedAttempt(ctx context.Context, matricula string, window time.Duration) (int, error) {
	key := attemptsKeyPrefix + matricula
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("record failed attempt: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("arm lockout window: %w", err)
		}
	}
	return int(count), nil
}

// FailedAttempts returns the current failed-login count.
func (r *SessionRepository) FailedAttempts(ctx context.Context, matricula string) (int, error) {
	count, err := r.client.Get(ctx, attemptsKeyPrefix+matricula).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("get failed attempts: %w", err)
	}
	return count, nil
}

// LockoutRemaining returns how long until the lockout window clears.
func (r *SessionRepository) LockoutRemaining(ctx context.Context, matricula string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, attemptsKeyPrefix+matricula).Result()
	if err != nil {
		return 0, fmt.Errorf("get lockout ttl: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// ClearFailedAttempts resets the counter after a successful login.
func (r *SessionRepository) ClearFailedAttempts(ctx context.Context, matricula string) error {
	if err := r.client.Del(ctx, attemptsKeyPrefix+matricula).Err(); err != nil {
		return fmt.Errorf("clear failed attempts: %w", err)
	}
	return nil
}
