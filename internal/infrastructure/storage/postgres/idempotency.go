package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"recordhub/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// IdempotencyReplay is the cached HTTP response for replay.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore keeps responses of mutating requests keyed by X-Idempotency-Key.
type IdempotencyStore struct {
	txManager  *TxManager
	ttl        time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager:  txManager,
		ttl:        ttl,
		staleAfter: time.Minute,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AcquireKey attempts to acquire an idempotency key.
// Returns:
//   - (nil, nil) if the key was acquired
//   - (replay, nil) if the operation already completed
//   - (nil, error) if the key is held by another request or reused for a different one
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, studentID, operation, requestHash string) (*IdempotencyReplay, error) {
	q := s.txManager.GetQuerier(ctx)
	now := s.now()

	tag, err := q.Exec(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, student_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key, studentID, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	var (
		storedStudent, storedOp, storedHash, contentType string
		status                                           IdempotencyStatus
		response                                         []byte
		statusCode                                       *int
	)
	err = q.QueryRow(ctx, `
		SELECT student_id, operation, status, request_hash, response, response_status, COALESCE(response_content_type, '')
		FROM idempotency_keys WHERE idempotency_key = $1
	`, key).Scan(&storedStudent, &storedOp, &status, &storedHash, &response, &statusCode, &contentType)
	if err == pgx.ErrNoRows {
		// Expired and purged between the two statements.
		return s.AcquireKey(ctx, key, studentID, operation, requestHash)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	if storedStudent != studentID || storedOp != operation || storedHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}

	switch status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		replay := &IdempotencyReplay{StatusCode: 200, ContentType: "application/json", Body: response}
		if statusCode != nil && *statusCode != 0 {
			replay.StatusCode = *statusCode
		}
		if contentType != "" {
			replay.ContentType = contentType
		}
		return replay, nil
	}

	// Pending: reclaim only when the holder looks crashed.
	tag, err = q.Exec(ctx, `
		UPDATE idempotency_keys SET updated_at = $1
		WHERE idempotency_key = $2 AND status = $3 AND updated_at < $4
	`, now, key, IdempotencyStatusPending, now.Add(-s.staleAfter))
	if err != nil {
		return nil, fmt.Errorf("reclaim stale key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}
	return nil, apperror.NewIdempotencyConflict(key)
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// FailKey stores an error response for replay.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, IdempotencyStatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $1, response = $2, response_status = $3, response_content_type = $4, updated_at = $5
		WHERE idempotency_key = $6
	`, status, body, statusCode, contentType, s.now(), key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM idempotency_keys WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return result.RowsAffected(), nil
}
