package database

import "database/sql"

// Timestamps are stored as UTC ISO-8601 text. TimeFormat is the canonical layout.
const TimeFormat = "2006-01-02T15:04:05Z"

// Movie is a row in the movies table.
type Movie struct {
	ID                  string
	TmdbID              sql.NullInt64
	ImdbID              string
	Title               string
	Year                int
	Runtime             int
	Overview            string
	TheatricalRelease   sql.NullString
	DigitalRelease      sql.NullString
	PhysicalRelease     sql.NullString
	PosterPath          string
	BackdropPath        string
	MinimumAvailability string
	Status              string
	Certification       string
	CollectionTitle     string
	VoteAverage         float64
	Directors           string // JSON array
	Writers             string // JSON array
	CastMembers         string // JSON array
	Genres              string // JSON array
	Tags                string // JSON array
	Monitored           bool
	HasFile             bool
	FilePath            string
	FileSize            int64
	Quality             string
	VideoCodec          string
	AudioCodec          string
	ReleaseGroup        string
	IsProper            bool
	IsRepack            bool
	QualityProfileID    string
	FolderPath          string
	AddedAt             string
	UpdatedAt           string
}

// Series is a row in the series table.
type Series struct {
	ID                string
	TvdbID            int
	TmdbID            int
	ImdbID            string
	Title             string
	Year              int
	Network           string
	Status            string
	Overview          string
	PosterPath        string
	SeriesType        string
	MonitorNewSeasons string
	UseSeasonFolder   bool
	Monitored         bool
	QualityProfileID  string
	FolderPath        string
	Tags              string // JSON array
	AddedAt           string
	UpdatedAt         string
}

// Season is a row in the seasons table.
type Season struct {
	ID           string
	SeriesID     string
	SeasonNumber int
	Monitored    bool
}

// Episode is a row in the episodes table.
type Episode struct {
	ID             string
	SeriesID       string
	SeasonNumber   int
	EpisodeNumber  int
	AbsoluteNumber int
	Title          string
	Overview       string
	AirDate        sql.NullString
	Monitored      bool
	HasFile        bool
	FilePath       string
	FileSize       int64
	Quality        string
	VideoCodec     string
	AudioCodec     string
	ReleaseGroup   string
	IsProper       bool
	IsRepack       bool
}

// QualityDefinition is a row in the quality_definitions table.
type QualityDefinition struct {
	ID            string
	Name          string
	Weight        int
	MinSize       int64
	MaxSize       int64
	PreferredSize int64
	Resolution    int
	Source        string
}

// QualityProfile is a row in the quality_profiles table.
type QualityProfile struct {
	ID                string
	Name              string
	MediaType         string
	Items             string // JSON array of {quality, allowed}
	Cutoff            string // quality name
	UpgradeAllowed    bool
	MinFormatScore    int
	FormatScores      string // JSON object of format id -> score override
	PropersPreference string
}

// CustomFormat is a row in the custom_formats table.
type CustomFormat struct {
	ID    string
	Name  string
	Score int
	Rules string // JSON array of rules
}

// Exclusion is a row in the exclusions table.
type Exclusion struct {
	ID        string
	TmdbID    int64
	MediaType string
	Title     string
	CreatedAt string
}

// BlacklistEntry is a row in the release_blacklist table.
type BlacklistEntry struct {
	ID            string
	ReleaseTitle  string
	MovieID       sql.NullString
	SeriesID      sql.NullString
	SeasonNumber  int
	EpisodeNumber int
	Reason        string
	CreatedAt     string
}

// Download is a row in the downloads table.
type Download struct {
	ID           string
	MediaType    string
	MovieID      sql.NullString
	SeriesID     sql.NullString
	EpisodeID    sql.NullString
	SeasonNumber int
	Title        string
	DownloadURL  string
	Size         int64
	Indexer      string
	Quality      string
	Status       string
	Progress     float64
	ClientID     string
	ClientJobID  string
	ErrorMessage string
	CreatedAt    string
	UpdatedAt    string
}

// HistoryEntry is a row in the history table.
type HistoryEntry struct {
	ID         int64
	EntityType string
	EntityID   string
	EventType  string
	Message    string
	Data       string // JSON object
	CreatedAt  string
}

// RSSRelease is a row in the rss_releases cache table.
type RSSRelease struct {
	ID          int64
	IndexerID   string
	GUID        string
	Title       string
	DownloadURL string
	Size        int64
	PublishDate sql.NullString
	Processed   bool
	Grabbed     bool
	CreatedAt   string
}

// ImportList is a row in the import_lists table.
type ImportList struct {
	ID                     string
	Name                   string
	Type                   string
	MediaType              string
	Enabled                bool
	ListID                 string
	URL                    string
	QualityProfileID       string
	RootFolder             string
	Monitor                string
	MinimumAvailability    string
	SearchOnAdd            bool
	RefreshIntervalMinutes int
	LastSync               sql.NullString
}

// Indexer is a row in the indexers table.
type Indexer struct {
	ID         string
	Name       string
	URL        string
	APIKey     string
	Enabled    bool
	Priority   int
	RSSEnabled bool
	Protocol   string
}

// DownloadClientConfig is a row in the download_clients table.
type DownloadClientConfig struct {
	ID         string
	Name       string
	Type       string
	Host       string
	Port       int
	Category   string
	Enabled    bool
	Protocol   string
	KeepSource bool
}

// NamingConfig is the single row in the naming_config table.
type NamingConfig struct {
	MovieFormat           string
	MovieFolderFormat     string
	StandardEpisodeFormat string
	DailyEpisodeFormat    string
	AnimeEpisodeFormat    string
	SeriesFolderFormat    string
	SeasonFolderFormat    string
	SpecialsFolderFormat  string
	ColonReplacement      string
	ReplaceIllegal        bool
	MultiEpisodeStyle     string
}

// RootFolder is a row in the root_folders table.
type RootFolder struct {
	ID        string
	Path      string
	MediaType string
}
