package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Defaults used by NewConfig.
const (
	// AppName names the XDG directories and the database file.
	AppName = "sitemirror"

	// DefaultOutputDir is the mirror root, relative to the working directory.
	DefaultOutputDir = "downloaded_site"

	// DefaultTimeout bounds every single request.
	DefaultTimeout = 10 * time.Second

	// DefaultConcurrency is the number of crawl workers per site.
	DefaultConcurrency = 4

	// DefaultBatchSize is the number of sites mirrored at the same time.
	DefaultBatchSize = 2

	// DefaultReportFile receives the crawl report.
	DefaultReportFile = "crawl_report.md"

	// DefaultFailedPagesFile receives the JSON array of failed page URLs.
	DefaultFailedPagesFile = "failed_pages.json"

	// DefaultUserAgent is sent with every request unless a site overrides it.
	DefaultUserAgent = "Mozilla/5.0 (compatible; sitemirror)"

	// DefaultMaxBodySize caps how much of one response is read into memory.
	DefaultMaxBodySize int64 = 50 * 1024 * 1024

	// DefaultSitemapPath is resolved against the base URL.
	DefaultSitemapPath = "/sitemap.xml"
)

// Report formats accepted by --format.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatText     = "text"
)

// ReportFormats lists the valid values of Config.ReportFormat.
var ReportFormats = []string{FormatMarkdown, FormatJSON, FormatText}

// Config holds every option of a mirror run. It is filled from CLI flags
// and passed down explicitly; nothing reads global state.
type Config struct {
	// Targets are the base URLs to mirror. Each defines its own site scope.
	Targets []string

	// OutputDir is the mirror root. With several targets each site is
	// stored in a subdirectory named after its host.
	OutputDir string

	// Timeout applies to each sitemap, page and asset request.
	Timeout time.Duration

	// Concurrency is the number of crawl workers per site. 1 is sequential.
	Concurrency int

	// VerifyTLS turns certificate verification on. It is off by default so
	// that staging sites with self-signed certificates can be mirrored.
	VerifyTLS bool

	// MaxPages stops a crawl after that many pages. 0 means unlimited.
	MaxPages int

	// MaxBodySize caps the bytes read from one response. 0 means DefaultMaxBodySize.
	MaxBodySize int64

	// UserAgent is sent with every request.
	UserAgent string

	// SitemapPath is where the sitemap is looked up, relative to the base URL.
	SitemapPath string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// ReportFile is the crawl report path. Empty disables the report file.
	ReportFile string

	// ReportFormat is one of ReportFormats.
	ReportFormat string

	// FailedPagesFile is the JSON list of failed pages. Empty disables it.
	FailedPagesFile string

	// BatchSize is how many targets are mirrored concurrently.
	BatchSize int

	// ConfigFilePath is an explicit .sitemirror path. Empty searches the
	// working directory and then the home directory.
	ConfigFilePath string

	// SiteConfigs are the per-host overrides loaded from the config file.
	SiteConfigs *File

	// SaveToDB records every run in the history database.
	SaveToDB bool

	// DBDir holds sitemirror.db. Defaults to XDGDataDir.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// Quiet suppresses progress lines and lowers logging to errors.
	Quiet bool

	// LogJSON writes logs as JSON lines.
	LogJSON bool
}

// NewConfig returns a Config populated with the defaults.
func NewConfig() *Config {
	return &Config{
		OutputDir:       DefaultOutputDir,
		Timeout:         DefaultTimeout,
		Concurrency:     DefaultConcurrency,
		MaxBodySize:     DefaultMaxBodySize,
		UserAgent:       DefaultUserAgent,
		SitemapPath:     DefaultSitemapPath,
		ReportFile:      DefaultReportFile,
		ReportFormat:    FormatMarkdown,
		FailedPagesFile: DefaultFailedPagesFile,
		BatchSize:       DefaultBatchSize,
		SaveToDB:        true,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/sitemirror on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/sitemirror on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate reports the first invalid option.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if err := validateBaseURL(target); err != nil {
			return err
		}
	}
	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if !slices.Contains(ReportFormats, c.ReportFormat) {
		return fmt.Errorf("%w: %q", ErrInvalidReportFormat, c.ReportFormat)
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidBaseURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return nil
}

// MultiSite reports whether more than one target is mirrored, in which case
// every site gets its own output subdirectory and report file names.
func (c *Config) MultiSite() bool {
	return len(c.Targets) > 1
}

// SiteFor returns the merged per-site overrides for a base URL.
// It returns the zero SiteConfig when no config file was loaded.
func (c *Config) SiteFor(baseURL string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(HostOf(baseURL))
}

// HostOf returns the host[:port] of raw, or raw itself when it does not parse.
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
