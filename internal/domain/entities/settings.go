package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Settings is the top-level configuration.
type Settings struct {
	SitesRoot    string               `yaml:"sites_root"`
	Sites        []SiteSettings       `yaml:"sites"`
	Tracking     TrackingSettings     `yaml:"tracking"`
	Crawler      CrawlerSettings      `yaml:"crawler"`
	Lock         LockSettings         `yaml:"lock"`
	FixGenerator FixGeneratorSettings `yaml:"fix_generator"`
	Verifier     VerifierSettings     `yaml:"verifier"`
	Server       ServerSettings       `yaml:"server"`
}

// SiteSettings maps a site id to its URL and working directory.
type SiteSettings struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
	Dir string `yaml:"dir"`
}

// TrackingSettings configures branch names, tags and the batch record location.
type TrackingSettings struct {
	StableBranch      string        `yaml:"stable_branch"`
	BatchPrefix       string        `yaml:"batch_prefix"`
	RollbackPrefix    string        `yaml:"rollback_prefix"`
	TagPrefix         string        `yaml:"tag_prefix"`
	RollbackTagPrefix string        `yaml:"rollback_tag_prefix"`
	MetadataFile      string        `yaml:"metadata_file"`
	CommandTimeout    time.Duration `yaml:"command_timeout"`
	AuthorName        string        `yaml:"author_name"`
	AuthorEmail       string        `yaml:"author_email"`
}

// BatchBranch returns the branch name of a batch.
func (t TrackingSettings) BatchBranch(batchID string) string { return t.BatchPrefix + batchID }

// RollbackBranch returns the branch name used to roll a batch back.
func (t TrackingSettings) RollbackBranch(batchID string) string { return t.RollbackPrefix + batchID }

// CompletionTag returns the tag marking a merged batch.
func (t TrackingSettings) CompletionTag(batchID string) string { return t.TagPrefix + batchID }

// RollbackTag returns the tag marking a rolled back batch.
func (t TrackingSettings) RollbackTag(batchID string) string { return t.RollbackTagPrefix + batchID }

// CrawlerSettings holds crawl defaults.
type CrawlerSettings struct {
	MaxPages          int           `yaml:"max_pages"`
	MaxDepth          int           `yaml:"max_depth"`
	Concurrency       int           `yaml:"concurrency"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	Browser           string        `yaml:"browser"` // "chromedp" or "http"
	UserAgent         string        `yaml:"user_agent"`
	DenyList          []string      `yaml:"deny_list"`
}

// LockSettings selects the per-site lock backend.
type LockSettings struct {
	Backend       string        `yaml:"backend"` // "memory" or "redis"
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"` // Inline or ${ENV_VAR}
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// FixGeneratorSettings configures the external fix generator process.
type FixGeneratorSettings struct {
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
	Env     []string      `yaml:"env"` // KEY=VALUE, values may use ${ENV_VAR}
}

// VerifierSettings selects how applied batches are verified.
type VerifierSettings struct {
	Backend string `yaml:"backend"` // "crawl"
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string `yaml:"addr"`
}

// minLockTTL keeps the redis lock renewal interval well above a round trip.
const minLockTTL = time.Second

const (
	BrowserChromedp = "chromedp"
	BrowserHTTP     = "http"
	LockMemory      = "memory"
	LockRedis       = "redis"
	VerifierCrawl   = "crawl"
	GeneratorExec   = "exec"
)

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// DefaultSettings returns the configuration used when no file is present.
func DefaultSettings() *Settings {
	return &Settings{
		SitesRoot: "sites",
		Tracking: TrackingSettings{
			StableBranch:      "seo-fixes",
			BatchPrefix:       "seo-batch/",
			RollbackPrefix:    "seo-rollback/",
			TagPrefix:         "seo-complete/",
			RollbackTagPrefix: "seo-rolled-back/",
			MetadataFile:      ".seoremedy/batch.json",
			CommandTimeout:    60 * time.Second,
			AuthorName:        "seoremedy",
			AuthorEmail:       "seoremedy@localhost",
		},
		Crawler: CrawlerSettings{
			MaxPages:          50,
			MaxDepth:          3,
			Concurrency:       1,
			NavigationTimeout: 30 * time.Second,
			Browser:           BrowserChromedp,
			UserAgent:         "seoremedy/1.0",
			DenyList:          DefaultDenyList(),
		},
		Lock: LockSettings{
			Backend: LockMemory,
			TTL:     2 * time.Minute,
		},
		FixGenerator: FixGeneratorSettings{
			Timeout: 5 * time.Minute,
		},
		Verifier: VerifierSettings{Backend: VerifierCrawl},
		Server:   ServerSettings{Addr: ":8080"},
	}
}

// NewSettings reads and parses a configuration file on top of the defaults,
// expanding environment variables in secrets.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	settings := DefaultSettings()
	if unmarshalErr := yaml.Unmarshal(data, settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	settings.Lock.RedisPassword = resolveSecret(settings.Lock.RedisPassword)
	for i, entry := range settings.FixGenerator.Env {
		settings.FixGenerator.Env[i] = resolveSecret(entry)
	}

	if validateErr := validate(settings); validateErr != nil {
		return nil, validateErr
	}

	return settings, nil
}

// LoadSettings loads the given file, or the first file found in the default
// locations, falling back to the defaults when there is none.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		found, err := FindConfigFile()
		if err != nil {
			logger.Debugf("No config file found, using defaults: %v", err)
			return DefaultSettings(), nil
		}
		path = found
	}
	logger.Debugf("Using config file: %s", path)
	return NewSettings(path)
}

// FindConfigFile searches for a configuration file in standard locations.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{".", ".config", "configs"}
	if homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{".seoremedy.yaml", ".seoremedy.yml", "seoremedy.yaml", "seoremedy.yml"}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// ResolveSite returns the configured site or, when a sites root is set, the site
// living in <sites_root>/<id>.
func (s *Settings) ResolveSite(id string) (Site, error) {
	if err := ValidateIdentifier("site", id); err != nil {
		return Site{}, err
	}
	for _, site := range s.Sites {
		if site.ID == id {
			return Site{ID: site.ID, URL: site.URL, Dir: site.Dir}, nil
		}
	}
	if s.SitesRoot == "" {
		return Site{}, fmt.Errorf("%w: %s", ErrSiteNotFound, id)
	}
	return Site{ID: id, Dir: filepath.Join(s.SitesRoot, id)}, nil
}

// CrawlOptions returns crawl options for the seed URL built from the crawler defaults.
func (s *Settings) CrawlOptions(seedURL string) CrawlOptions {
	return CrawlOptions{
		SeedURL:           seedURL,
		MaxPages:          s.Crawler.MaxPages,
		MaxDepth:          s.Crawler.MaxDepth,
		Concurrency:       s.Crawler.Concurrency,
		NavigationTimeout: s.Crawler.NavigationTimeout,
		Browser:           s.Crawler.Browser,
	}
}

// ResolveCrawlOptions returns the crawler defaults for the seed URL with the overrides applied.
func (s *Settings) ResolveCrawlOptions(seedURL string, overrides CrawlOverrides) CrawlOptions {
	opts := s.CrawlOptions(seedURL)
	if overrides.MaxPages > 0 {
		opts.MaxPages = overrides.MaxPages
	}
	if overrides.MaxDepth != nil && *overrides.MaxDepth >= 0 {
		opts.MaxDepth = *overrides.MaxDepth
	}
	if overrides.Concurrency > 0 {
		opts.Concurrency = overrides.Concurrency
	}
	if overrides.NavigationTimeout > 0 {
		opts.NavigationTimeout = overrides.NavigationTimeout
	}
	if overrides.Browser != "" {
		opts.Browser = overrides.Browser
	}
	return opts
}

// resolveSecret expands ${ENV_VAR} references and, if the result is a path to an
// existing file, reads the secret from it.
func resolveSecret(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read secret file %q: %v", resolved, readErr)
			return resolved
		}
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validate checks for required and well-formed configuration values.
func validate(s *Settings) error {
	seen := make(map[string]struct{}, len(s.Sites))
	for i, site := range s.Sites {
		if err := ValidateIdentifier("site", site.ID); err != nil {
			return fmt.Errorf("sites[%d]: %w", i, err)
		}
		if _, dup := seen[site.ID]; dup {
			return fmt.Errorf("sites[%d]: duplicate id %q", i, site.ID)
		}
		seen[site.ID] = struct{}{}
		if site.Dir == "" {
			return fmt.Errorf("sites[%d].dir is required", i)
		}
	}

	t := s.Tracking
	if t.StableBranch == "" || t.BatchPrefix == "" || t.RollbackPrefix == "" {
		return errors.New("tracking.stable_branch, batch_prefix and rollback_prefix are required")
	}
	if t.TagPrefix == "" || t.RollbackTagPrefix == "" || t.TagPrefix == t.RollbackTagPrefix {
		return errors.New("tracking.tag_prefix and rollback_tag_prefix must be set and differ")
	}
	if t.MetadataFile == "" || filepath.IsAbs(t.MetadataFile) {
		return errors.New("tracking.metadata_file must be a path relative to the repository root")
	}
	if t.CommandTimeout <= 0 {
		return errors.New("tracking.command_timeout must be positive")
	}

	c := s.Crawler
	if c.MaxPages < 1 {
		return errors.New("crawler.max_pages must be at least 1")
	}
	if c.MaxDepth < 0 {
		return errors.New("crawler.max_depth must not be negative")
	}
	if c.Concurrency < 1 {
		return errors.New("crawler.concurrency must be at least 1")
	}
	if c.Browser != BrowserChromedp && c.Browser != BrowserHTTP {
		return fmt.Errorf("crawler.browser must be %q or %q", BrowserChromedp, BrowserHTTP)
	}

	switch s.Lock.Backend {
	case LockMemory:
	case LockRedis:
		if s.Lock.RedisAddr == "" {
			return errors.New("lock.redis_addr is required for the redis backend")
		}
		if s.Lock.TTL < minLockTTL {
			return fmt.Errorf("lock.ttl must be at least %s", minLockTTL)
		}
	default:
		return fmt.Errorf("lock.backend must be %q or %q", LockMemory, LockRedis)
	}

	if s.Verifier.Backend != VerifierCrawl {
		return fmt.Errorf("verifier.backend must be %q", VerifierCrawl)
	}

	return nil
}
