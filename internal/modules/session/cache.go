package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"tradescope/internal/domain"
)

// Cache snapshots the current session to a msgpack file. Restoring from the
// snapshot skips the SQL round trip on startup; the journal database remains
// the fallback when the snapshot is missing or unreadable.
type Cache struct {
	path string
	log  zerolog.Logger
}

// NewCache creates a session cache rooted in dataDir.
func NewCache(dataDir string, log zerolog.Logger) *Cache {
	return &Cache{
		path: filepath.Join(dataDir, "session.snapshot"),
		log:  log.With().Str("component", "session_cache").Logger(),
	}
}

// snapshot is the on-disk form of a session.
type snapshot struct {
	ID         string               `msgpack:"id"`
	SourceName string               `msgpack:"source_name"`
	Filter     string               `msgpack:"filter"`
	ImportedAt time.Time            `msgpack:"imported_at"`
	Stats      ImportStats          `msgpack:"stats"`
	Trades     []domain.TradeRecord `msgpack:"trades"`
}

// Save writes the session snapshot. The write goes through a temp file and
// rename so a crash never leaves a truncated snapshot behind.
func (c *Cache) Save(s *Session) error {
	snap := snapshot{
		ID:         s.ID,
		SourceName: s.SourceName,
		Filter:     s.Filter,
		ImportedAt: s.ImportedAt,
		Stats:      s.Stats,
		Trades:     s.Trades,
	}

	raw, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to install session snapshot: %w", err)
	}

	c.log.Debug().Int("bytes", len(raw)).Msg("Session snapshot saved")
	return nil
}

// Load restores the snapshot, or returns nil when no snapshot exists.
func (c *Cache) Load() (*Session, error) {
	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session snapshot: %w", err)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}

	s := &Session{
		ID:         snap.ID,
		SourceName: snap.SourceName,
		Filter:     snap.Filter,
		ImportedAt: snap.ImportedAt,
		Stats:      snap.Stats,
		Trades:     snap.Trades,
		Daily:      BuildDailyIndex(snap.Trades),
	}

	c.log.Info().
		Str("session_id", s.ID).
		Int("trades", len(s.Trades)).
		Msg("Session restored from snapshot")

	return s, nil
}

// Clear removes the snapshot file if present.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session snapshot: %w", err)
	}
	return nil
}
