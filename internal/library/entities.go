package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bandstand/internal/services"
)

const (
	songColumns = `id, COALESCE(title_curated, title_crawled), COALESCE(composer_curated, composer_crawled), created_at, updated_at`

	performerColumns = `id, COALESCE(name_curated, name_crawled), COALESCE(biography_curated, biography_crawled),
        COALESCE(image_url_curated, image_url_crawled), created_at, updated_at`

	recordingColumns = `id, song_id, leader_id, duration_secs, COALESCE(title_curated, title_crawled),
        COALESCE(recorded_on_curated, recorded_on_crawled), created_at, updated_at`

	releaseColumns = `id, COALESCE(title_curated, title_crawled), COALESCE(label_curated, label_crawled),
        COALESCE(year_curated, year_crawled), COALESCE(cover_url_curated, cover_url_crawled), created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(scanner rowScanner) (*Song, error) {
	var (
		song               Song
		title, composer    sql.NullString
		createdAt, updated string
	)
	if err := scanner.Scan(&song.ID, &title, &composer, &createdAt, &updated); err != nil {
		return nil, err
	}
	song.Title = title.String
	song.Composer = composer.String
	song.CreatedAt = parseTimeString(createdAt)
	song.UpdatedAt = parseTimeString(updated)
	return &song, nil
}

func scanPerformer(scanner rowScanner) (*Performer, error) {
	var (
		performer           Performer
		name, bio, imageURL sql.NullString
		createdAt, updated  string
	)
	if err := scanner.Scan(&performer.ID, &name, &bio, &imageURL, &createdAt, &updated); err != nil {
		return nil, err
	}
	performer.Name = name.String
	performer.Biography = bio.String
	performer.ImageURL = imageURL.String
	performer.CreatedAt = parseTimeString(createdAt)
	performer.UpdatedAt = parseTimeString(updated)
	return &performer, nil
}

func scanRecording(scanner rowScanner) (*Recording, error) {
	var (
		recording          Recording
		leaderID           sql.NullInt64
		duration           sql.NullInt64
		title, recordedOn  sql.NullString
		createdAt, updated string
	)
	if err := scanner.Scan(&recording.ID, &recording.SongID, &leaderID, &duration, &title, &recordedOn, &createdAt, &updated); err != nil {
		return nil, err
	}
	recording.LeaderID = leaderID.Int64
	recording.DurationSecs = int(duration.Int64)
	recording.Title = title.String
	recording.RecordedOn = recordedOn.String
	recording.CreatedAt = parseTimeString(createdAt)
	recording.UpdatedAt = parseTimeString(updated)
	return &recording, nil
}

func scanRelease(scanner rowScanner) (*Release, error) {
	var (
		release                  Release
		title, label, yearText   sql.NullString
		coverURL                 sql.NullString
		createdAt, updated       string
	)
	if err := scanner.Scan(&release.ID, &title, &label, &yearText, &coverURL, &createdAt, &updated); err != nil {
		return nil, err
	}
	release.Title = title.String
	release.Label = label.String
	release.Year = parseYear(yearText.String)
	release.CoverURL = coverURL.String
	release.CreatedAt = parseTimeString(createdAt)
	release.UpdatedAt = parseTimeString(updated)
	return &release, nil
}

func parseYear(value string) int {
	var year int
	if _, err := fmt.Sscanf(value, "%d", &year); err != nil {
		return 0
	}
	return year
}

// CreateSong inserts a song with its crawled title and composer attributed
// to source.
func (s *Store) CreateSong(ctx context.Context, title, composer, source string) (*Song, error) {
	now := nowString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (
            title_crawled, title_crawled_at, title_crawled_source,
            composer_crawled, composer_crawled_at, composer_crawled_source,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(title), now, nullableString(source),
		nullableString(composer), now, nullableString(source),
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert song: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSong(ctx, id)
}

// GetSong fetches a song by identifier.
func (s *Store) GetSong(ctx context.Context, id int64) (*Song, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "library", "get_song", fmt.Sprintf("song %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get song: %w", err)
	}
	return song, nil
}

// FindSongByTitle returns the first song whose computed title matches
// case-insensitively, or nil when none does.
func (s *Store) FindSongByTitle(ctx context.Context, title string) (*Song, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs
         WHERE LOWER(COALESCE(title_curated, title_crawled)) = LOWER(?) ORDER BY id LIMIT 1`, title)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find song: %w", err)
	}
	return song, nil
}

// ListSongs returns all songs ordered by identifier.
func (s *Store) ListSongs(ctx context.Context) ([]*Song, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+songColumns+` FROM songs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()

	var songs []*Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// CreatePerformer inserts a performer with a crawled name attributed to source.
func (s *Store) CreatePerformer(ctx context.Context, name, source string) (*Performer, error) {
	now := nowString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO performers (
            name_crawled, name_crawled_at, name_crawled_source, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?)`,
		nullableString(name), now, nullableString(source), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert performer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPerformer(ctx, id)
}

// GetPerformer fetches a performer by identifier.
func (s *Store) GetPerformer(ctx context.Context, id int64) (*Performer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+performerColumns+` FROM performers WHERE id = ?`, id)
	performer, err := scanPerformer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "library", "get_performer", fmt.Sprintf("performer %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get performer: %w", err)
	}
	return performer, nil
}

// FindPerformerByName returns the first performer whose computed name matches
// case-insensitively, or nil when none does.
func (s *Store) FindPerformerByName(ctx context.Context, name string) (*Performer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+performerColumns+` FROM performers
         WHERE LOWER(COALESCE(name_curated, name_crawled)) = LOWER(?) ORDER BY id LIMIT 1`, name)
	performer, err := scanPerformer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find performer: %w", err)
	}
	return performer, nil
}

// EnsurePerformer finds a performer by name or creates one with the crawled
// name attributed to source.
func (s *Store) EnsurePerformer(ctx context.Context, name, source string) (*Performer, error) {
	performer, err := s.FindPerformerByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if performer != nil {
		return performer, nil
	}
	return s.CreatePerformer(ctx, name, source)
}

// CreateRecording inserts a recording of a song with crawled title and
// recording date attributed to source. leaderID and durationSecs may be zero.
func (s *Store) CreateRecording(ctx context.Context, songID, leaderID int64, durationSecs int, title, recordedOn, source string) (*Recording, error) {
	now := nowString()
	var duration any
	if durationSecs > 0 {
		duration = durationSecs
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (
            song_id, leader_id, duration_secs,
            title_crawled, title_crawled_at, title_crawled_source,
            recorded_on_crawled, recorded_on_crawled_at, recorded_on_crawled_source,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		songID, nullableID(leaderID), duration,
		nullableString(title), now, nullableString(source),
		nullableString(recordedOn), now, nullableString(source),
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRecording(ctx, id)
}

// GetRecording fetches a recording by identifier.
func (s *Store) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	recording, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "library", "get_recording", fmt.Sprintf("recording %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return recording, nil
}

// RecordingsForSong returns the recordings of a song ordered by identifier.
func (s *Store) RecordingsForSong(ctx context.Context, songID int64) ([]*Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE song_id = ? ORDER BY id`, songID)
	if err != nil {
		return nil, fmt.Errorf("recordings for song: %w", err)
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		recording, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, recording)
	}
	return recordings, rows.Err()
}

// RecordingsByIDs fetches a set of recordings keyed by identifier.
func (s *Store) RecordingsByIDs(ctx context.Context, ids ...int64) (map[int64]*Recording, error) {
	if len(ids) == 0 {
		return map[int64]*Recording{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE id IN (` + makePlaceholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recordings by ids: %w", err)
	}
	defer rows.Close()

	recordings := make(map[int64]*Recording, len(ids))
	for rows.Next() {
		recording, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings[recording.ID] = recording
	}
	return recordings, rows.Err()
}

// UpdateRecordingDuration sets the nominal length of a recording.
func (s *Store) UpdateRecordingDuration(ctx context.Context, id int64, durationSecs int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET duration_secs = ?, updated_at = ? WHERE id = ?`,
		durationSecs, nowString(), id)
	if err != nil {
		return fmt.Errorf("update duration: %w", err)
	}
	return nil
}

// SetRecordingLeader assigns the session leader.
func (s *Store) SetRecordingLeader(ctx context.Context, id, leaderID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET leader_id = ?, updated_at = ? WHERE id = ?`,
		nullableID(leaderID), nowString(), id)
	if err != nil {
		return fmt.Errorf("set leader: %w", err)
	}
	return nil
}

// CreateRelease inserts a release with crawled fields attributed to source.
func (s *Store) CreateRelease(ctx context.Context, title, label string, year int, source string) (*Release, error) {
	now := nowString()
	var yearValue any
	if year > 0 {
		yearValue = fmt.Sprintf("%d", year)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO releases (
            title_crawled, title_crawled_at, title_crawled_source,
            label_crawled, label_crawled_at, label_crawled_source,
            year_crawled, year_crawled_at, year_crawled_source,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(title), now, nullableString(source),
		nullableString(label), now, nullableString(source),
		yearValue, now, nullableString(source),
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert release: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRelease(ctx, id)
}

// GetRelease fetches a release by identifier.
func (s *Store) GetRelease(ctx context.Context, id int64) (*Release, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+releaseColumns+` FROM releases WHERE id = ?`, id)
	release, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "library", "get_release", fmt.Sprintf("release %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get release: %w", err)
	}
	return release, nil
}

// FindReleaseByTitle returns the first release with a matching computed
// title (and year when year > 0), or nil when none does.
func (s *Store) FindReleaseByTitle(ctx context.Context, title string, year int) (*Release, error) {
	query := `SELECT ` + releaseColumns + ` FROM releases
         WHERE LOWER(COALESCE(title_curated, title_crawled)) = LOWER(?)`
	args := []any{title}
	if year > 0 {
		query += ` AND COALESCE(year_curated, year_crawled) = ?`
		args = append(args, fmt.Sprintf("%d", year))
	}
	query += ` ORDER BY id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	release, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find release: %w", err)
	}
	return release, nil
}

// LinkRecordingRelease ties a recording to a release. Duplicate links are
// ignored; the return value reports whether a new link was created.
func (s *Store) LinkRecordingRelease(ctx context.Context, recordingID, releaseID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO recording_releases (recording_id, release_id, created_at) VALUES (?, ?, ?)`,
		recordingID, releaseID, nowString())
	if err != nil {
		return false, fmt.Errorf("link recording release: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddCredit ties a performer to a recording with an instrument. Duplicate
// credits are ignored.
func (s *Store) AddCredit(ctx context.Context, recordingID, performerID int64, instrument string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO recording_performers (recording_id, performer_id, instrument, created_at)
         VALUES (?, ?, ?, ?)`,
		recordingID, performerID, instrument, nowString())
	if err != nil {
		return false, fmt.Errorf("add credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CreditsForRecording returns the personnel of a recording with joined
// performer names.
func (s *Store) CreditsForRecording(ctx context.Context, recordingID int64) ([]Credit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rp.id, rp.recording_id, rp.performer_id, rp.instrument,
                COALESCE(p.name_curated, p.name_crawled)
         FROM recording_performers rp
         JOIN performers p ON p.id = rp.performer_id
         WHERE rp.recording_id = ? ORDER BY rp.id`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("credits for recording: %w", err)
	}
	defer rows.Close()

	var credits []Credit
	for rows.Next() {
		var (
			credit Credit
			name   sql.NullString
		)
		if err := rows.Scan(&credit.ID, &credit.RecordingID, &credit.PerformerID, &credit.Instrument, &name); err != nil {
			return nil, err
		}
		credit.PerformerName = name.String
		credits = append(credits, credit)
	}
	return credits, rows.Err()
}

// ReleasesForRecording returns the releases a recording appears on.
func (s *Store) ReleasesForRecording(ctx context.Context, recordingID int64) ([]*Release, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, COALESCE(r.title_curated, r.title_crawled), COALESCE(r.label_curated, r.label_crawled),
                COALESCE(r.year_curated, r.year_crawled), COALESCE(r.cover_url_curated, r.cover_url_crawled),
                r.created_at, r.updated_at
         FROM releases r
         JOIN recording_releases rr ON rr.release_id = r.id
         WHERE rr.recording_id = ? ORDER BY r.id`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("releases for recording: %w", err)
	}
	defer rows.Close()

	var releases []*Release
	for rows.Next() {
		release, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}
	return releases, rows.Err()
}
