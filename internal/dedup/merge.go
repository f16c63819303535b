package dedup

import (
	"context"
	"fmt"
	"time"

	"bandstand/internal/library"
	"bandstand/internal/logging"
	"bandstand/internal/services"
)

// Report summarizes what one merge moved.
type Report struct {
	ReleasesMigrated int
	CreditsMigrated  int
	RefsMigrated     int
	SkippedConflicts int
	Deleted          int
}

// Merge folds duplicate recordings into the master inside one transaction:
// release links, personnel credits and external references move to the
// master, junction rows the master already holds are skipped rather than
// erroring, and the duplicates are deleted at the end. Any unexpected
// failure rolls the whole merge back.
func (r *Resolver) Merge(ctx context.Context, masterID int64, duplicateIDs []int64) (*Report, error) {
	if len(duplicateIDs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "dedup", "merge", "no duplicates given", nil)
	}
	for _, id := range duplicateIDs {
		if id == masterID {
			return nil, services.Wrap(services.ErrValidation, "dedup", "merge",
				"master cannot appear in the duplicate list", nil)
		}
	}

	ids := append([]int64{masterID}, duplicateIDs...)
	recordings, err := r.store.RecordingsByIDs(ctx, ids...)
	if err != nil {
		return nil, err
	}
	master, ok := recordings[masterID]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "dedup", "merge",
			fmt.Sprintf("recording %d", masterID), nil)
	}
	for _, id := range duplicateIDs {
		duplicate, ok := recordings[id]
		if !ok {
			return nil, services.Wrap(services.ErrNotFound, "dedup", "merge",
				fmt.Sprintf("recording %d", id), nil)
		}
		if duplicate.SongID != master.SongID {
			return nil, services.Wrap(services.ErrMergeConflict, "dedup", "merge",
				fmt.Sprintf("recording %d belongs to song %d, master to song %d",
					id, duplicate.SongID, master.SongID), nil)
		}
	}

	tx, err := r.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	report := &Report{}

	for _, duplicateID := range duplicateIDs {
		var releaseLinks int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM recording_releases WHERE recording_id = ?`, duplicateID).Scan(&releaseLinks); err != nil {
			return nil, fmt.Errorf("count release links: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO recording_releases (recording_id, release_id, created_at)
             SELECT ?, release_id, ? FROM recording_releases WHERE recording_id = ?`,
			masterID, now, duplicateID)
		if err != nil {
			return nil, fmt.Errorf("migrate release links: %w", err)
		}
		migrated, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		report.ReleasesMigrated += int(migrated)
		report.SkippedConflicts += releaseLinks - int(migrated)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recording_releases WHERE recording_id = ?`, duplicateID); err != nil {
			return nil, fmt.Errorf("drop duplicate release links: %w", err)
		}

		var credits int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM recording_performers WHERE recording_id = ?`, duplicateID).Scan(&credits); err != nil {
			return nil, fmt.Errorf("count credits: %w", err)
		}
		res, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO recording_performers (recording_id, performer_id, instrument, created_at)
             SELECT ?, performer_id, instrument, ? FROM recording_performers WHERE recording_id = ?`,
			masterID, now, duplicateID)
		if err != nil {
			return nil, fmt.Errorf("migrate credits: %w", err)
		}
		migrated, err = res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		report.CreditsMigrated += int(migrated)
		report.SkippedConflicts += credits - int(migrated)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recording_performers WHERE recording_id = ?`, duplicateID); err != nil {
			return nil, fmt.Errorf("drop duplicate credits: %w", err)
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE external_refs SET entity_id = ?, updated_at = ?
             WHERE entity_type = ? AND entity_id = ?`,
			masterID, now, library.EntityRecording, duplicateID)
		if err != nil {
			return nil, fmt.Errorf("migrate refs: %w", err)
		}
		migrated, err = res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		report.RefsMigrated += int(migrated)

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recordings WHERE id = ?`, duplicateID); err != nil {
			return nil, fmt.Errorf("delete duplicate recording: %w", err)
		}
		report.Deleted++
	}

	// Migrated refs can leave the master with several references in one
	// catalog; flag those groups so enrichment skips them.
	if _, err := tx.ExecContext(ctx,
		`UPDATE external_refs SET ambiguous = 1, updated_at = ?
         WHERE entity_type = ? AND entity_id = ? AND catalog IN (
             SELECT catalog FROM external_refs
             WHERE entity_type = ? AND entity_id = ?
             GROUP BY catalog HAVING COUNT(1) > 1)`,
		now, library.EntityRecording, masterID, library.EntityRecording, masterID); err != nil {
		return nil, fmt.Errorf("flag ambiguous refs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}

	r.logger.Info("merged duplicate recordings",
		logging.Int64("master_id", masterID),
		logging.Int("duplicates", len(duplicateIDs)),
		logging.Int("releases_migrated", report.ReleasesMigrated),
		logging.Int("credits_migrated", report.CreditsMigrated),
		logging.Int("refs_migrated", report.RefsMigrated),
		logging.Int("skipped_conflicts", report.SkippedConflicts))
	return report, nil
}
