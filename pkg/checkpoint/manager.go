package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nilaykumar/msc-viz/pkg/harvest"
)

var (
	// ErrNotFound indicates no checkpoint exists for the key
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidEntry indicates the stored checkpoint is corrupted
	ErrInvalidEntry = errors.New("invalid checkpoint entry")
)

// Manager reads and writes checkpoints in Redis.
type Manager struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewManager creates a new checkpoint manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:  redisClient,
		logger: log.With().Str("component", "checkpoint").Logger(),
	}
}

// Get retrieves the checkpoint for key.
// Returns ErrNotFound if none is stored.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CheckpointLoads.WithLabelValues("miss").Inc()
			return nil, ErrNotFound
		}
		CheckpointErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CheckpointErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.Token == "" {
		CheckpointErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: empty token", ErrInvalidEntry)
	}

	CheckpointLoads.WithLabelValues("hit").Inc()
	m.logger.Debug().Str("key", key.String()).Str("token", entry.Token).Msg("Checkpoint loaded")
	return &entry, nil
}

// Set stores the checkpoint for key.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("checkpoint entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CheckpointErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, 0).Err(); err != nil {
		CheckpointErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CheckpointSaves.Inc()
	m.logger.Debug().Str("key", key.String()).Str("token", entry.Token).Int("cursor", entry.Cursor).Msg("Checkpoint saved")
	return nil
}

// Delete removes the checkpoint for key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CheckpointErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Saver returns a harvest.Checkpointer bound to key.
func (m *Manager) Saver(key Key) *Saver {
	return &Saver{manager: m, key: key}
}

// Saver adapts a Manager to the driver's Checkpointer interface.
type Saver struct {
	manager *Manager
	key     Key
}

var _ harvest.Checkpointer = (*Saver)(nil)

// Save implements harvest.Checkpointer.
func (s *Saver) Save(ctx context.Context, cp harvest.Checkpoint) error {
	return s.manager.Set(ctx, s.key, NewEntry(cp))
}

// Complete implements harvest.Checkpointer. A finished harvest leaves no
// checkpoint behind.
func (s *Saver) Complete(ctx context.Context) error {
	return s.manager.Delete(ctx, s.key)
}
