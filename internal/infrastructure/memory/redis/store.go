// Package redis implements session memory on a Redis backend: one hash
// per session plus a set indexing the active session ids, with expiry
// enforced by Redis TTL rather than in-process timers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
)

const (
	sessionPrefix = "session:"
	indexKey      = "active_sessions"

	// DefaultTTL bounds a session's lifetime from creation; updates do
	// not extend it.
	DefaultTTL = 24 * time.Hour
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store persists sessions as Redis hashes. Structured fields (history,
// extracted data, metadata) are JSON-encoded strings inside the hash.
//
// Read-modify-write sequences are serialized per session id with an
// in-process mutex, so concurrent agents touching one session cannot
// lose updates within a single process. Writers in other processes
// still race (last write wins on the encoded field).
type Store struct {
	client *goredis.Client
	ttl    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func Open(cfg Config, ttl time.Duration) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	return New(client, ttl)
}

func New(client *goredis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		client: client,
		ttl:    ttl,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// CreateSession allocates a fresh session id, initializes every field
// and arms the TTL. The id joins the active-session index set.
func (s *Store) CreateSession(ctx context.Context, source string, inputType domain.Format, intent domain.Intent, timestamp time.Time) (string, error) {
	id := uuid.NewString()
	ts := timestamp.UTC().Format(time.RFC3339Nano)

	fields := map[string]any{
		"session_id":         id,
		"source":             source,
		"input_type":         string(inputType),
		"intent":             string(intent),
		"created_at":         ts,
		"updated_at":         ts,
		"status":             string(domain.SessionActive),
		"processing_history": "[]",
		"extracted_data":     "{}",
		"metadata":           "{}",
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(id), fields)
	pipe.SAdd(ctx, indexKey, id)
	pipe.Expire(ctx, sessionKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if len(raw) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return decodeSession(raw)
}

// UpdateSession writes the given fields and refreshes updated_at. The
// TTL is deliberately not reset: expiry counts from creation.
func (s *Store) UpdateSession(ctx context.Context, id string, updates map[string]any) error {
	unlock := s.lock(id)
	defer unlock()
	return s.writeFields(ctx, id, updates)
}

// AppendProcessingStep appends one step to the session's history.
// Insertion order is chronological order.
func (s *Store) AppendProcessingStep(ctx context.Context, id, agent string, result map[string]any) error {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}

	history := append(session.ProcessingHistory, domain.ProcessingStep{
		Agent:     agent,
		Timestamp: time.Now().UTC(),
		Result:    result,
	})
	return s.writeFields(ctx, id, map[string]any{"processing_history": history})
}

// MergeExtractedData overlays value at key; existing keys are
// overwritten, the map is never wholesale replaced.
func (s *Store) MergeExtractedData(ctx context.Context, id, key string, value any) error {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}

	data := session.ExtractedData
	if data == nil {
		data = make(map[string]any)
	}
	data[key] = value
	return s.writeFields(ctx, id, map[string]any{"extracted_data": data})
}

// ListSessions returns all sessions in the index, skipping ids whose
// hash expired between listing and reading.
func (s *Store) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list session index: %w", err)
	}

	sessions := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.GetSession(ctx, id)
		if domain.IsKind(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, indexKey, id)
	del := pipe.Del(ctx, sessionKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.dropLock(id)
	if del.Val() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// CleanupExpired removes index entries whose session hash was expired
// by Redis. Returns the number of ids swept.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list session index: %w", err)
	}

	swept := 0
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return swept, fmt.Errorf("check session %s: %w", id, err)
		}
		if exists > 0 {
			continue
		}
		if err := s.client.SRem(ctx, indexKey, id).Err(); err != nil {
			return swept, fmt.Errorf("sweep session %s: %w", id, err)
		}
		s.dropLock(id)
		swept++
	}
	return swept, nil
}

func (s *Store) writeFields(ctx context.Context, id string, updates map[string]any) error {
	key := sessionKey(id)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}

	encoded := make(map[string]any, len(updates)+1)
	for field, value := range updates {
		switch v := value.(type) {
		case string:
			encoded[field] = v
		default:
			blob, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode field %s: %w", field, err)
			}
			encoded[field] = string(blob)
		}
	}
	encoded["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	if err := s.client.HSet(ctx, key, encoded).Err(); err != nil {
		return fmt.Errorf("write session fields: %w", err)
	}
	return nil
}

func decodeSession(raw map[string]string) (*domain.Session, error) {
	session := &domain.Session{
		ID:        raw["session_id"],
		Source:    raw["source"],
		InputType: domain.Format(raw["input_type"]),
		Intent:    domain.Intent(raw["intent"]),
		Status:    domain.SessionStatus(raw["status"]),
	}

	var err error
	if session.CreatedAt, err = parseTimestamp(raw["created_at"]); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTimestamp(raw["updated_at"]); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}

	if err := decodeJSONField(raw["processing_history"], &session.ProcessingHistory); err != nil {
		return nil, fmt.Errorf("decode processing_history: %w", err)
	}
	if err := decodeJSONField(raw["extracted_data"], &session.ExtractedData); err != nil {
		return nil, fmt.Errorf("decode extracted_data: %w", err)
	}
	if err := decodeJSONField(raw["metadata"], &session.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	if session.ProcessingHistory == nil {
		session.ProcessingHistory = []domain.ProcessingStep{}
	}
	if session.ExtractedData == nil {
		session.ExtractedData = map[string]any{}
	}
	return session, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

func decodeJSONField(raw string, out any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

// lock serializes read-modify-write sequences for one session id.
func (s *Store) lock(id string) func() {
	s.mu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Store) dropLock(id string) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

func sessionKey(id string) string {
	return sessionPrefix + id
}
