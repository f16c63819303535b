package research

import (
	"context"
	"fmt"
	"log/slog"

	"bandstand/internal/catalog"
	"bandstand/internal/config"
	"bandstand/internal/library"
	"bandstand/internal/logging"
	"bandstand/internal/matching"
	"bandstand/internal/provenance"
	"bandstand/internal/services"
)

// maxSessionScan bounds how many archive search hits are fetched while
// looking for a session that actually contains the song.
const maxSessionScan = 5

// Runner executes research phases against the catalogs. It owns one client
// per catalog; the per-catalog pacers inside those clients serialize and
// space every outbound request regardless of phase.
type Runner struct {
	store        *library.Store
	fields       *provenance.Store
	archive      *catalog.Archive
	streambox    *catalog.Streambox
	wavelength   *catalog.Wavelength
	encyclopedia *catalog.Encyclopedia
	coverArt     *catalog.CoverArt
	threshold    float64
	logger       *slog.Logger
}

// NewRunner builds the catalog clients from configuration.
func NewRunner(cfg *config.Config, store *library.Store, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	archive, err := catalog.NewArchive(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("archive client: %w", err)
	}
	streambox, err := catalog.NewStreambox(cfg.Streambox)
	if err != nil {
		return nil, fmt.Errorf("streambox client: %w", err)
	}
	wavelength, err := catalog.NewWavelength(cfg.Wavelength)
	if err != nil {
		return nil, fmt.Errorf("wavelength client: %w", err)
	}
	encyclopedia, err := catalog.NewEncyclopedia(cfg.Encyclopedia)
	if err != nil {
		return nil, fmt.Errorf("encyclopedia client: %w", err)
	}
	coverArt, err := catalog.NewCoverArt(cfg.CoverArt)
	if err != nil {
		return nil, fmt.Errorf("cover art client: %w", err)
	}
	return &Runner{
		store:        store,
		fields:       provenance.New(store),
		archive:      archive,
		streambox:    streambox,
		wavelength:   wavelength,
		encyclopedia: encyclopedia,
		coverArt:     coverArt,
		threshold:    cfg.Matching.Threshold,
		logger:       logger.With(logging.String(logging.FieldComponent, "research")),
	}, nil
}

// Archive exposes the archive client's validator surface.
func (r *Runner) Archive() *catalog.Archive { return r.archive }

// Encyclopedia exposes the encyclopedia client's validator surface.
func (r *Runner) Encyclopedia() *catalog.Encyclopedia { return r.encyclopedia }

// jobState carries what earlier phases resolved so later phases don't
// re-derive it. A job restarted after shutdown re-runs from the first
// phase, so the state never needs to survive a process.
type jobState struct {
	song      *library.Song
	recording *library.Recording
	release   *library.Release
}

type progressFunc func(current, total int)

// runPhase dispatches one named phase.
func (r *Runner) runPhase(ctx context.Context, phase string, job *Job, state *jobState, progress progressFunc) error {
	switch phase {
	case PhaseArchiveImport:
		return r.archiveImport(ctx, job, state, progress)
	case PhaseStreamboxMatch:
		return r.streamingMatch(ctx, r.streambox, r.streambox, catalog.NameStreambox, job, state, progress)
	case PhaseWavelengthMatch:
		return r.streamingMatch(ctx, r.wavelength, r.wavelength, catalog.NameWavelength, job, state, progress)
	case PhaseMediaFetch:
		return r.mediaFetch(ctx, job, state, progress)
	default:
		return services.Wrap(services.ErrValidation, "research", "run_phase",
			fmt.Sprintf("unknown phase %q", phase), nil)
	}
}

// archiveImport matches the song against the primary discographic catalog
// and imports the matched session wholesale: release, leader, every track
// as a recording with its credits left for later curation.
func (r *Runner) archiveImport(ctx context.Context, job *Job, state *jobState, progress progressFunc) error {
	song, err := r.store.GetSong(ctx, job.EntityID)
	if err != nil {
		return err
	}
	state.song = song

	candidates, err := r.archive.SearchReleases(ctx, song.Title)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return services.Wrap(services.ErrNoCandidates, catalog.NameArchive, "search_sessions",
			"no sessions indexed for song", nil)
	}

	// Session titles rarely resemble the song title, so the session is
	// chosen by the second level of the match: the first search hit whose
	// track list actually contains the song wins.
	scan := candidates
	if len(scan) > maxSessionScan {
		scan = scan[:maxSessionScan]
	}
	var (
		detail     *catalog.DetailRecord
		trackMatch matching.Result
	)
	for idx, candidate := range scan {
		progress(idx+1, len(scan))
		fetched, err := r.archive.FetchRelease(ctx, candidate.ExternalID)
		if err != nil {
			return err
		}
		result := matching.MatchTrack(song.Title, fetched.TrackCandidates(), r.threshold)
		if result.Outcome == matching.OutcomeMatched {
			detail = fetched
			trackMatch = result
			break
		}
		if detail == nil {
			detail = fetched
			trackMatch = result
		}
	}
	if trackMatch.Outcome != matching.OutcomeMatched {
		return services.Wrap(trackMatch.Err(), catalog.NameArchive, "match_track", trackMatch.Rationale, nil)
	}

	var leaderID int64
	if detail.Artist != "" {
		leader, err := r.store.EnsurePerformer(ctx, detail.Artist, catalog.NameArchive)
		if err != nil {
			return err
		}
		leaderID = leader.ID
	}

	release, err := r.store.FindReleaseByTitle(ctx, detail.Title, detail.Year)
	if err != nil {
		return err
	}
	if release == nil {
		release, err = r.store.CreateRelease(ctx, detail.Title, detail.Label, detail.Year, catalog.NameArchive)
		if err != nil {
			return err
		}
	}
	if _, err := r.store.UpsertRef(ctx, library.EntityRelease, release.ID, catalog.NameArchive, detail.ExternalID, ""); err != nil {
		return err
	}
	state.release = release

	total := len(detail.Tracks)
	for idx, track := range detail.Tracks {
		progress(idx+1, total)
		if track.Title == "" {
			continue
		}

		trackSong := song
		if track.ExternalID != trackMatch.Candidate.ExternalID {
			trackSong, err = r.ensureSong(ctx, track.Title)
			if err != nil {
				return err
			}
		}

		recording, err := r.ensureRecording(ctx, trackSong.ID, leaderID, track, detail.RecordedOn)
		if err != nil {
			return err
		}
		if _, err := r.store.LinkRecordingRelease(ctx, recording.ID, release.ID); err != nil {
			return err
		}
		if trackSong.ID == song.ID {
			state.recording = recording
		}
	}
	return nil
}

func (r *Runner) ensureSong(ctx context.Context, title string) (*library.Song, error) {
	song, err := r.store.FindSongByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if song != nil {
		return song, nil
	}
	return r.store.CreateSong(ctx, title, "", catalog.NameArchive)
}

// ensureRecording keys re-imports on the archive track reference so a
// re-run refreshes crawled fields instead of spawning duplicates.
func (r *Runner) ensureRecording(ctx context.Context, songID, leaderID int64, track catalog.TrackRecord, recordedOn string) (*library.Recording, error) {
	ref, err := r.store.FindRef(ctx, library.EntityRecording, catalog.NameArchive, track.ExternalID)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		if err := r.fields.SetCrawled(ctx, library.EntityRecording, ref.EntityID, "title", track.Title, catalog.NameArchive); err != nil {
			return nil, err
		}
		if err := r.fields.SetCrawled(ctx, library.EntityRecording, ref.EntityID, "recorded_on", recordedOn, catalog.NameArchive); err != nil {
			return nil, err
		}
		return r.store.GetRecording(ctx, ref.EntityID)
	}
	recording, err := r.store.CreateRecording(ctx, songID, leaderID, track.DurationSecs, track.Title, recordedOn, catalog.NameArchive)
	if err != nil {
		return nil, err
	}
	if _, err := r.store.UpsertRef(ctx, library.EntityRecording, recording.ID, catalog.NameArchive, track.ExternalID, ""); err != nil {
		return nil, err
	}
	return recording, nil
}

// streamingMatch locates the job's release and recording in a streaming
// catalog: album match first, then the track inside it. A matched album
// with no matching track is the partial-container outcome, reported
// distinctly so nothing upstream mistakes it for a full match.
func (r *Runner) streamingMatch(ctx context.Context, searcher catalog.Searcher, fetcher catalog.ReleaseFetcher, catalogName string, job *Job, state *jobState, progress progressFunc) error {
	if err := r.resolveState(ctx, job, state); err != nil {
		return err
	}
	progress(0, 2)

	query := state.song.Title
	if state.release != nil {
		query = state.release.Title
	}
	candidates, err := searcher.SearchReleases(ctx, query)
	if err != nil {
		return err
	}
	matchCandidates := make([]matching.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		matchCandidates = append(matchCandidates, candidate.MatchCandidate())
	}
	selected := matching.Select(query, matchCandidates, r.threshold)
	if selected.Outcome != matching.OutcomeMatched {
		return services.Wrap(selected.Err(), catalogName, "match_album", selected.Rationale, nil)
	}
	progress(1, 2)

	detail, err := fetcher.FetchRelease(ctx, selected.Candidate.ExternalID)
	if err != nil {
		return err
	}
	if state.release != nil {
		if _, err := r.store.UpsertRef(ctx, library.EntityRelease, state.release.ID, catalogName, detail.ExternalID, ""); err != nil {
			return err
		}
		if detail.CoverURL != "" {
			if err := r.fields.SetCrawled(ctx, library.EntityRelease, state.release.ID, "cover_url", detail.CoverURL, catalogName); err != nil {
				return err
			}
		}
	}

	trackMatch := matching.MatchTrack(state.song.Title, detail.TrackCandidates(), r.threshold)
	if trackMatch.Outcome != matching.OutcomeMatched {
		return services.Wrap(trackMatch.Err(), catalogName, "match_track", trackMatch.Rationale, nil)
	}
	progress(2, 2)

	if state.recording != nil {
		if _, err := r.store.UpsertRef(ctx, library.EntityRecording, state.recording.ID, catalogName, trackMatch.Candidate.ExternalID, ""); err != nil {
			return err
		}
		if state.recording.DurationSecs == 0 {
			for _, track := range detail.Tracks {
				if track.ExternalID == trackMatch.Candidate.ExternalID && track.DurationSecs > 0 {
					if err := r.store.UpdateRecordingDuration(ctx, state.recording.ID, track.DurationSecs); err != nil {
						return err
					}
					state.recording.DurationSecs = track.DurationSecs
					break
				}
			}
		}
	}
	return nil
}

// mediaFetch pulls the leader's biography and portrait from the
// encyclopedia and the release cover from the cover-art archive. Each half
// runs even when the other fails; the first failure is the phase outcome.
func (r *Runner) mediaFetch(ctx context.Context, job *Job, state *jobState, progress progressFunc) error {
	if err := r.resolveState(ctx, job, state); err != nil {
		return err
	}
	progress(0, 2)

	var firstErr error
	if state.recording != nil && state.recording.LeaderID > 0 {
		if err := r.fetchBiography(ctx, state.recording.LeaderID); err != nil {
			firstErr = err
		}
	}
	progress(1, 2)

	if state.release != nil && state.release.CoverURL == "" {
		if err := r.fetchCover(ctx, state.release); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	progress(2, 2)
	return firstErr
}

func (r *Runner) fetchBiography(ctx context.Context, performerID int64) error {
	performer, err := r.store.GetPerformer(ctx, performerID)
	if err != nil {
		return err
	}
	candidates, err := r.encyclopedia.SearchArtists(ctx, performer.Name)
	if err != nil {
		return err
	}
	matchCandidates := make([]matching.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		matchCandidates = append(matchCandidates, candidate.MatchCandidate())
	}
	selected := matching.Select(performer.Name, matchCandidates, r.threshold)
	if selected.Outcome != matching.OutcomeMatched {
		return services.Wrap(selected.Err(), catalog.NameEncyclopedia, "match_article", selected.Rationale, nil)
	}
	biography, imageURL, err := r.encyclopedia.FetchArticle(ctx, selected.Candidate.ExternalID)
	if err != nil {
		return err
	}
	if biography != "" {
		if err := r.fields.SetCrawled(ctx, library.EntityPerformer, performer.ID, "biography", biography, catalog.NameEncyclopedia); err != nil {
			return err
		}
	}
	if imageURL != "" {
		if err := r.fields.SetCrawled(ctx, library.EntityPerformer, performer.ID, "image_url", imageURL, catalog.NameEncyclopedia); err != nil {
			return err
		}
	}
	if _, err := r.store.UpsertRef(ctx, library.EntityPerformer, performer.ID, catalog.NameEncyclopedia, selected.Candidate.ExternalID, ""); err != nil {
		return err
	}
	return nil
}

func (r *Runner) fetchCover(ctx context.Context, release *library.Release) error {
	candidates, err := r.coverArt.SearchCovers(ctx, release.Title, release.Label, release.Year)
	if err != nil {
		return err
	}
	matchCandidates := make([]matching.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		matchCandidates = append(matchCandidates, candidate.MatchCandidate())
	}
	selected := matching.Select(release.Title, matchCandidates, r.threshold)
	if selected.Outcome != matching.OutcomeMatched {
		return services.Wrap(selected.Err(), catalog.NameCoverArt, "match_scan", selected.Rationale, nil)
	}
	coverURL, err := r.coverArt.FetchCoverURL(ctx, selected.Candidate.ExternalID)
	if err != nil {
		return err
	}
	if coverURL != "" {
		if err := r.fields.SetCrawled(ctx, library.EntityRelease, release.ID, "cover_url", coverURL, catalog.NameCoverArt); err != nil {
			return err
		}
		release.CoverURL = coverURL
	}
	if _, err := r.store.UpsertRef(ctx, library.EntityRelease, release.ID, catalog.NameCoverArt, selected.Candidate.ExternalID, ""); err != nil {
		return err
	}
	return nil
}

// resolveState re-derives song, recording and release from the database for
// phases that run without a fresh archive import.
func (r *Runner) resolveState(ctx context.Context, job *Job, state *jobState) error {
	if state.song == nil {
		song, err := r.store.GetSong(ctx, job.EntityID)
		if err != nil {
			return err
		}
		state.song = song
	}
	if state.recording == nil {
		recordings, err := r.store.RecordingsForSong(ctx, state.song.ID)
		if err != nil {
			return err
		}
		if len(recordings) > 0 {
			state.recording = recordings[0]
		}
	}
	if state.release == nil && state.recording != nil {
		releases, err := r.store.ReleasesForRecording(ctx, state.recording.ID)
		if err != nil {
			return err
		}
		if len(releases) > 0 {
			state.release = releases[0]
		}
	}
	if state.recording == nil && state.release == nil {
		return services.Wrap(services.ErrNoCandidates, "research", "resolve_state",
			"song has no recordings or releases to match against", nil)
	}
	return nil
}
