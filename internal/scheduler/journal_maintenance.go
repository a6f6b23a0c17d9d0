package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"tradescope/internal/database"
)

// JournalMaintenanceJob checkpoints and vacuums the journal database.
// Runs nightly: the journal only grows at import time, so a daily pass
// keeps the WAL and free pages in check without touching the hot path.
type JournalMaintenanceJob struct {
	log       zerolog.Logger
	journalDB *database.DB
}

// NewJournalMaintenanceJob creates a new JournalMaintenanceJob
func NewJournalMaintenanceJob(journalDB *database.DB, log zerolog.Logger) *JournalMaintenanceJob {
	return &JournalMaintenanceJob{
		log:       log.With().Str("job", "journal_maintenance").Logger(),
		journalDB: journalDB,
	}
}

// Name returns the job name
func (j *JournalMaintenanceJob) Name() string {
	return "journal_maintenance"
}

// Run executes the maintenance pass
func (j *JournalMaintenanceJob) Run() error {
	if j.journalDB == nil {
		return nil
	}

	if err := j.journalDB.WALCheckpoint("TRUNCATE"); err != nil {
		return fmt.Errorf("failed to checkpoint journal WAL: %w", err)
	}

	if err := j.journalDB.IncrementalVacuum(); err != nil {
		return fmt.Errorf("failed to vacuum journal: %w", err)
	}

	if stats, err := j.journalDB.GetStats(); err == nil {
		j.log.Info().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("Journal maintenance completed")
	}

	return nil
}
