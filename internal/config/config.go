package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	"github.com/joho/godotenv"
)

const (
	DefaultPollInterval    = 1 * time.Second
	DefaultEditInterval    = 500 * time.Millisecond
	DefaultMinSeeders      = 1
	DefaultSearchAttempts  = 3
	DefaultSearchRetryWait = 2 * time.Second
	DefaultHistoryDBPath   = "mediagram.db"
	DefaultSubtitleLangs   = "fr,en"

	PollErrorRetry  = "retry"
	PollErrorVanish = "vanish"
)

type Config struct {
	BotToken      string
	ChatID        int64
	DownloadDir   string
	MoveTargets   []MoveTarget
	LogLevel      string
	HistoryDBPath string
	MetricsAddr   string

	QBittorrent      QBittorrentConfig
	SearchSettings   SearchConfig
	Subtitles        SubtitlesConfig
	DownloadSettings DownloadConfig
}

// MoveTarget is a named destination offered by the move flow.
type MoveTarget struct {
	Label string
	Path  string
}

type QBittorrentConfig struct {
	URL      string
	Username string
	Password string
}

type SearchConfig struct {
	ProwlarrURL    string
	ProwlarrAPIKey string
	MinSeeders     int
	Attempts       int
	RetryWait      time.Duration
}

type SubtitlesConfig struct {
	APIKey    string
	Username  string
	Password  string
	Languages []string
}

type DownloadConfig struct {
	PollInterval    time.Duration
	EditInterval    time.Duration
	PollErrorPolicy string
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// NewConfig reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logutils.Log.WithError(err).Warn("Failed to load .env file")
	}

	moveTargets, err := parseMoveTargets(getEnv("MOVE_TARGETS", ""))
	if err != nil {
		return nil, utils.WrapError(err, "configuration validation failed", nil)
	}

	config := &Config{
		BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChatID:        getEnvInt64("TELEGRAM_CHAT_ID", 0),
		DownloadDir:   getEnv("DOWNLOAD_DIR", ""),
		MoveTargets:   moveTargets,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		HistoryDBPath: getEnv("HISTORY_DB_PATH", DefaultHistoryDBPath),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),

		QBittorrent: QBittorrentConfig{
			URL:      getEnv("QB_ADDR", ""),
			Username: getEnv("QB_USER", ""),
			Password: getEnv("QB_PASS", ""),
		},

		SearchSettings: SearchConfig{
			ProwlarrURL:    getEnv("PROWLARR_URL", ""),
			ProwlarrAPIKey: getEnv("PROWLARR_API_KEY", ""),
			MinSeeders:     getEnvInt("MIN_SEEDERS", DefaultMinSeeders),
			Attempts:       getEnvInt("SEARCH_ATTEMPTS", DefaultSearchAttempts),
			RetryWait:      getEnvDuration("SEARCH_RETRY_WAIT", DefaultSearchRetryWait),
		},

		Subtitles: SubtitlesConfig{
			APIKey:    getEnv("OPENSUBTITLES_API_KEY", ""),
			Username:  getEnv("OPENSUBTITLES_USER", ""),
			Password:  getEnv("OPENSUBTITLES_PASS", ""),
			Languages: getEnvList("SUBTITLE_LANGUAGES", DefaultSubtitleLangs),
		},

		DownloadSettings: DownloadConfig{
			PollInterval:    getEnvDuration("POLL_INTERVAL", DefaultPollInterval),
			EditInterval:    getEnvDuration("EDIT_INTERVAL", DefaultEditInterval),
			PollErrorPolicy: strings.ToLower(getEnv("POLL_ERROR_POLICY", PollErrorRetry)),
		},
	}

	if err := config.validate(); err != nil {
		return nil, utils.WrapError(err, "configuration validation failed", nil)
	}

	logutils.Log.Info("Configuration loaded successfully")
	return config, nil
}

func parseMoveTargets(raw string) ([]MoveTarget, error) {
	var targets []MoveTarget
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		label, path, ok := strings.Cut(item, "=")
		label, path = strings.TrimSpace(label), strings.TrimSpace(path)
		if !ok || label == "" || path == "" {
			return nil, utils.WrapError(utils.ErrConfigurationError, "invalid MOVE_TARGETS entry", map[string]any{
				"entry": item,
			})
		}
		targets = append(targets, MoveTarget{Label: label, Path: path})
	}
	return targets, nil
}

func (c *Config) validate() error {
	if err := c.validateRequiredFields(); err != nil {
		return err
	}
	if err := c.validateProwlarr(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	return c.validateDownloadSettings()
}

func (c *Config) validateRequiredFields() error {
	var missingFields []string

	if c.BotToken == "" {
		missingFields = append(missingFields, "TELEGRAM_BOT_TOKEN")
	}
	if c.ChatID == 0 {
		missingFields = append(missingFields, "TELEGRAM_CHAT_ID")
	}
	if c.DownloadDir == "" {
		missingFields = append(missingFields, "DOWNLOAD_DIR")
	}
	if c.QBittorrent.URL == "" {
		missingFields = append(missingFields, "QB_ADDR")
	}

	if len(missingFields) > 0 {
		return utils.WrapError(utils.ErrConfigurationError, "missing required environment variables", map[string]any{
			"missing_fields": missingFields,
		})
	}
	return nil
}

func (c *Config) validateProwlarr() error {
	s := c.SearchSettings
	if (s.ProwlarrURL != "") != (s.ProwlarrAPIKey != "") {
		return utils.WrapError(utils.ErrConfigurationError, "PROWLARR_URL and PROWLARR_API_KEY must be set together", nil)
	}
	if s.MinSeeders < 0 {
		return utils.WrapError(utils.ErrConfigurationError, "MIN_SEEDERS cannot be negative", nil)
	}
	if s.Attempts <= 0 {
		return utils.WrapError(utils.ErrConfigurationError, "SEARCH_ATTEMPTS must be positive", nil)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	s := c.Subtitles
	if (s.Username != "" || s.Password != "") && s.APIKey == "" {
		return utils.WrapError(utils.ErrConfigurationError, "OPENSUBTITLES_API_KEY is required when credentials are set", nil)
	}
	if s.APIKey != "" && len(s.Languages) == 0 {
		return utils.WrapError(utils.ErrConfigurationError, "SUBTITLE_LANGUAGES cannot be empty", nil)
	}
	return nil
}

func (c *Config) validateDownloadSettings() error {
	d := c.DownloadSettings
	if d.PollInterval <= 0 {
		return utils.WrapError(utils.ErrConfigurationError, "POLL_INTERVAL must be positive", nil)
	}
	if d.EditInterval <= 0 {
		return utils.WrapError(utils.ErrConfigurationError, "EDIT_INTERVAL must be positive", nil)
	}
	if d.PollErrorPolicy != PollErrorRetry && d.PollErrorPolicy != PollErrorVanish {
		return utils.WrapError(utils.ErrConfigurationError, "POLL_ERROR_POLICY must be 'retry' or 'vanish'", map[string]any{
			"value": d.PollErrorPolicy,
		})
	}
	return nil
}

// SearchEnabled reports whether a torrent index is configured.
func (c *Config) SearchEnabled() bool {
	return c.SearchSettings.ProwlarrURL != "" && c.SearchSettings.ProwlarrAPIKey != ""
}

// SubtitlesEnabled reports whether the subtitle provider is configured.
func (c *Config) SubtitlesEnabled() bool {
	return c.Subtitles.APIKey != ""
}
