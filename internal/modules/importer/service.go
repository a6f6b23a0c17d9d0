package importer

import (
	"fmt"

	"github.com/rs/zerolog"

	"tradescope/internal/events"
	"tradescope/internal/modules/session"
)

// Service runs the import pipeline: parse, normalize, build session,
// install, persist. Parsing and normalization errors at the file level
// abort the import with the previous dataset untouched; per-row problems
// only move counters.
type Service struct {
	manager *session.Manager
	repo    *session.Repository
	cache   *session.Cache
	events  *events.Manager
	log     zerolog.Logger
}

// NewService creates an import service. repo, cache and eventManager may
// be nil (used by tests that only need the in-memory pipeline).
func NewService(
	manager *session.Manager,
	repo *session.Repository,
	cache *session.Cache,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		manager: manager,
		repo:    repo,
		cache:   cache,
		events:  eventManager,
		log:     log.With().Str("service", "importer").Logger(),
	}
}

// Import parses raw CSV text and installs the result as the current
// session. Returns the new session, or an error leaving the previous
// session in place.
func (s *Service) Import(raw, sourceName string, filter Filter) (*session.Session, error) {
	doc, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", sourceName, err)
	}

	trades, stats := Normalize(doc, filter)

	sess := session.New(sourceName, string(filter), trades, stats)
	s.manager.Replace(sess)

	s.log.Info().
		Str("session_id", sess.ID).
		Str("source", sourceName).
		Str("filter", string(filter)).
		Int("retained", stats.Retained).
		Int("rejected_invalid", stats.RejectedInvalid).
		Int("rejected_filtered", stats.RejectedFiltered).
		Msg("Dataset imported")

	// Persistence is best-effort: the in-memory session is already
	// installed, and the journal can be rebuilt from the next import.
	if s.repo != nil {
		if err := s.repo.Replace(sess); err != nil {
			s.log.Warn().Err(err).Msg("Failed to persist session to journal")
		}
	}
	if s.cache != nil {
		if err := s.cache.Save(sess); err != nil {
			s.log.Warn().Err(err).Msg("Failed to write session snapshot")
		}
	}

	if s.events != nil {
		s.events.Publish(events.DatasetReplaced, &events.DatasetReplacedData{
			SessionID:        sess.ID,
			SourceName:       sourceName,
			Filter:           string(filter),
			Retained:         stats.Retained,
			RejectedInvalid:  stats.RejectedInvalid,
			RejectedFiltered: stats.RejectedFiltered,
		})
	}

	return sess, nil
}

// Restore loads the last persisted session on startup, preferring the
// snapshot and falling back to the journal database. Returns nil when
// nothing was persisted.
func (s *Service) Restore() (*session.Session, error) {
	if s.cache != nil {
		sess, err := s.cache.Load()
		if err != nil {
			s.log.Warn().Err(err).Msg("Session snapshot unreadable, falling back to journal")
		} else if sess != nil {
			s.manager.Replace(sess)
			return sess, nil
		}
	}

	if s.repo == nil {
		return nil, nil
	}

	sess, err := s.repo.LoadCurrent()
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	s.manager.Replace(sess)
	return sess, nil
}
