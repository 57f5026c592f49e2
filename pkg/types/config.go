package types

import "time"

// Mode selects the default API endpoints. PROD talks to the reverse-proxied
// deployment on the local host, DEV to a locally running app on port 8000.
type Mode string

const (
	ModeProd Mode = "PROD"
	ModeDev  Mode = "DEV"
)

// HTTPConfig holds shared HTTP settings used by drawers that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "cabinet/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// NERConfig holds settings for the NER API client.
type NERConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the base URL of the NER API (e.g. "http://127.0.0.1:8000").
	APIURL string `json:"api_url" yaml:"api_url"`

	// WSURL is the base URL for the websocket endpoint (e.g. "ws://127.0.0.1:8000").
	WSURL string `json:"ws_url" yaml:"ws_url"`

	// Token is an optional bearer token sent with every request.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Concurrency bounds the number of in-flight requests for batch calls (default 8).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxRetries is the number of retries on 429/503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// KnowledgeConfig holds settings for the knowledge base.
type KnowledgeConfig struct {
	// DataDir holds the generated package data (cui_to_snomed.xz, snomed_tree.xz).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// IndexDir holds the SQLite store and its exports.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default maximum number of lookup results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// MetaMapFormat selects the MetaMap output format.
type MetaMapFormat string

const (
	// FormatMMI is the fielded MetaMap Indexing output.
	FormatMMI MetaMapFormat = "mmi"
	// FormatJSON is the unformatted JSON output.
	FormatJSON MetaMapFormat = "json"
)

// MetaMapConfig holds settings for running a local MetaMap install.
type MetaMapConfig struct {
	// Location is the path to the public_mm directory. A leading ~ is expanded.
	Location string `json:"location" yaml:"location"`

	// Binary is the metamap executable name or path (default "metamap").
	Binary string `json:"binary" yaml:"binary"`

	// StartupTimeout bounds how long Initialize waits for the servers (default 60s).
	StartupTimeout time.Duration `json:"startup_timeout" yaml:"startup_timeout"`

	// Workers bounds parallel runs in RunMany (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// APIKey is reserved for the MetaMap REST API. It is loaded but unused by
	// the local runner.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ServerConfig holds settings for the REST app.
type ServerConfig struct {
	Address string `json:"address" yaml:"address"`
	Port    string `json:"port" yaml:"port"`

	// ReleasesFile maps release names to download URLs.
	ReleasesFile string `json:"releases_file" yaml:"releases_file"`

	// ReloadInterval is how often the knowledge base is reloaded from disk.
	// Zero disables reloading.
	ReloadInterval time.Duration `json:"reload_interval" yaml:"reload_interval"`

	// RateLimit is the token refill rate per client per second (default 3).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// RateBurst is the bucket capacity per client (default 1000).
	RateBurst int64 `json:"rate_burst" yaml:"rate_burst"`
}

// GenerateConfig holds settings for the package-data generators.
type GenerateConfig struct {
	// OutputDir is where the xz-compressed JSON files are written (default "data").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// Config groups every drawer's configuration as read from cabinet.yaml.
type Config struct {
	Mode      Mode            `json:"mode" yaml:"mode"`
	NER       NERConfig       `json:"ner" yaml:"ner"`
	Knowledge KnowledgeConfig `json:"knowledge" yaml:"knowledge"`
	MetaMap   MetaMapConfig   `json:"metamap" yaml:"metamap"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Generate  GenerateConfig  `json:"generate" yaml:"generate"`
}
