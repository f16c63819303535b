package library

import "time"

// Entity type identifiers persisted in external_refs and research_jobs.
const (
	EntitySong      = "song"
	EntityPerformer = "performer"
	EntityRecording = "recording"
	EntityRelease   = "release"
)

// Song is a composition. Title and Composer are computed projections of the
// layered columns: curated wins over crawled.
type Song struct {
	ID        int64
	Title     string
	Composer  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Performer is a musician. Name, Biography and ImageURL are computed
// projections.
type Performer struct {
	ID        int64
	Name      string
	Biography string
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recording is one performance of a song. Title and RecordedOn are computed
// projections; RecordedOn stays free text as catalogs report it.
type Recording struct {
	ID           int64
	SongID       int64
	LeaderID     int64
	DurationSecs int
	Title        string
	RecordedOn   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Release is an album or issue. Title, Label, Year and CoverURL are computed
// projections.
type Release struct {
	ID        int64
	Title     string
	Label     string
	Year      int
	CoverURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credit ties a performer to a recording with an instrument. PerformerName
// is joined in for display.
type Credit struct {
	ID            int64
	RecordingID   int64
	PerformerID   int64
	Instrument    string
	PerformerName string
}

// ExternalRef links an internal entity to an external catalog page.
type ExternalRef struct {
	ID         int64
	EntityType string
	EntityID   int64
	Catalog    string
	ExternalID string
	URL        string
	Ambiguous  bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
