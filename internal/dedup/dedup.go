package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"bandstand/internal/config"
	"bandstand/internal/library"
	"bandstand/internal/logging"
)

// Group is one suggested merge: the lowest-numbered recording is the master
// and the rest are its duplicates. Suggestions only; nothing is merged until
// an operator calls Merge.
type Group struct {
	MasterID     int64
	DuplicateIDs []int64
	Rationale    string
}

// Resolver detects and merges recordings that represent the same real
// performance.
type Resolver struct {
	store  *library.Store
	cfg    config.Matching
	logger *slog.Logger
}

// New creates a resolver.
func New(store *library.Store, cfg config.Matching, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		store:  store,
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "dedup")),
	}
}

// FindCandidates groups a song's recordings that look like the same
// performance: same leader, enough personnel overlap, nominal lengths
// within the window, recording dates equal or adjacent.
func (r *Resolver) FindCandidates(ctx context.Context, songID int64) ([]Group, error) {
	recordings, err := r.store.RecordingsForSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	if len(recordings) < 2 {
		return nil, nil
	}

	personnel := make(map[int64]map[int64]bool, len(recordings))
	for _, recording := range recordings {
		credits, err := r.store.CreditsForRecording(ctx, recording.ID)
		if err != nil {
			return nil, err
		}
		set := make(map[int64]bool, len(credits))
		for _, credit := range credits {
			set[credit.PerformerID] = true
		}
		personnel[recording.ID] = set
	}

	parent := make(map[int64]int64, len(recordings))
	for _, recording := range recordings {
		parent[recording.ID] = recording.ID
	}
	var find func(int64) int64
	find = func(id int64) int64 {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b int64) {
		ra, rb := find(a), find(b)
		if ra != rb {
			if ra > rb {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	for i := 0; i < len(recordings); i++ {
		for j := i + 1; j < len(recordings); j++ {
			a, b := recordings[i], recordings[j]
			if r.sameTake(a, b, personnel[a.ID], personnel[b.ID]) {
				union(a.ID, b.ID)
			}
		}
	}

	members := make(map[int64][]int64)
	for _, recording := range recordings {
		root := find(recording.ID)
		members[root] = append(members[root], recording.ID)
	}

	var groups []Group
	for root, ids := range members {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, Group{
			MasterID:     root,
			DuplicateIDs: ids[1:],
			Rationale: fmt.Sprintf("same leader, personnel overlap >= %.0f%%, duration within %ds, dates adjacent",
				r.cfg.PersonnelOverlap*100, r.cfg.DurationWindowSecs),
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].MasterID < groups[j].MasterID })
	return groups, nil
}

func (r *Resolver) sameTake(a, b *library.Recording, personnelA, personnelB map[int64]bool) bool {
	if a.LeaderID != b.LeaderID {
		return false
	}
	if overlap(personnelA, personnelB) < r.cfg.PersonnelOverlap {
		return false
	}
	if a.DurationSecs > 0 && b.DurationSecs > 0 {
		if math.Abs(float64(a.DurationSecs-b.DurationSecs)) > float64(r.cfg.DurationWindowSecs) {
			return false
		}
	}
	return datesAdjacent(a.RecordedOn, b.RecordedOn)
}

// overlap measures shared personnel relative to the smaller roster. Two
// unknown rosters don't contradict each other; one known and one unknown
// proves nothing either way and counts as no overlap.
func overlap(a, b map[int64]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}
	shared := 0
	for id := range smaller {
		if larger[id] {
			shared++
		}
	}
	return float64(shared) / float64(len(smaller))
}

// datesAdjacent accepts equal free-text dates, parseable dates within one
// day of each other, and missing dates. Unparseable differing dates fail.
func datesAdjacent(a, b string) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return true
	}
	dateA, okA := parseDate(a)
	dateB, okB := parseDate(b)
	if !okA || !okB {
		return false
	}
	diff := dateA.Sub(dateB)
	if diff < 0 {
		diff = -diff
	}
	return diff <= 24*time.Hour
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
