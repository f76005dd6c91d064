package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AssemblyAI configures the transcription service.
type AssemblyAI struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Language        string `toml:"language"`
	PollInterval    string `toml:"poll_interval"`
	MaxPollAttempts int    `toml:"max_poll_attempts"`
}

// Refine configures the subtitle refinement model.
type Refine struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// Redis configures the optional job event stream.
type Redis struct {
	URL    string `toml:"url"`
	Stream string `toml:"stream"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Port            int      `toml:"port"`
	DataPath        string   `toml:"data_path"`
	UploadPath      string   `toml:"upload_path"`
	OutputPath      string   `toml:"output_path"`
	StaticDir       string   `toml:"static_dir"`
	PublicBaseURL   string   `toml:"public_base_url"`
	CORSOrigins     []string `toml:"cors_origins"`
	MaxUploadMB     int      `toml:"max_upload_mb"`
	UploadRateLimit int      `toml:"upload_rate_limit"`
	CachePath       string   `toml:"transcript_cache_path"`

	AssemblyAI AssemblyAI `toml:"assemblyai"`
	Refine     Refine     `toml:"refine"`
	Redis      Redis      `toml:"redis"`
	Logging    Logging    `toml:"logging"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:            8080,
		DataPath:        "./data",
		CORSOrigins:     []string{"*"},
		MaxUploadMB:     50,
		UploadRateLimit: 10,
		AssemblyAI: AssemblyAI{
			BaseURL:         "https://api.assemblyai.com",
			Language:        "en",
			PollInterval:    "3s",
			MaxPollAttempts: 1200,
		},
		Refine: Refine{
			BaseURL:   "https://api.anthropic.com",
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 4096,
		},
		Redis:   Redis{Stream: "autosub:jobs"},
		Logging: Logging{Level: "info", Format: "auto"},
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order. An empty path falls back to AUTOSUB_CONFIG; a
// path that was named explicitly must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("AUTOSUB_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("open config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Port, err = getEnvInt("PORT", c.Port); err != nil {
		return err
	}
	c.DataPath = getEnv("DATA_PATH", c.DataPath)
	c.UploadPath = getEnv("UPLOAD_PATH", c.UploadPath)
	c.OutputPath = getEnv("OUTPUT_PATH", c.OutputPath)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.CachePath = getEnv("TRANSCRIPT_CACHE_PATH", c.CachePath)

	// CORS origins: comma-separated list or "*"
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if c.MaxUploadMB, err = getEnvInt("MAX_UPLOAD_MB", c.MaxUploadMB); err != nil {
		return err
	}
	if c.UploadRateLimit, err = getEnvInt("UPLOAD_RATE_LIMIT", c.UploadRateLimit); err != nil {
		return err
	}

	c.AssemblyAI.APIKey = getEnv("ASSEMBLYAI_API_KEY", c.AssemblyAI.APIKey)
	c.AssemblyAI.BaseURL = getEnv("ASSEMBLYAI_BASE_URL", c.AssemblyAI.BaseURL)
	c.AssemblyAI.Language = getEnv("TRANSCRIBE_LANGUAGE", c.AssemblyAI.Language)
	c.AssemblyAI.PollInterval = getEnv("POLL_INTERVAL", c.AssemblyAI.PollInterval)
	if c.AssemblyAI.MaxPollAttempts, err = getEnvInt("MAX_POLL_ATTEMPTS", c.AssemblyAI.MaxPollAttempts); err != nil {
		return err
	}

	c.Refine.APIKey = getEnv("ANTHROPIC_API_KEY", c.Refine.APIKey)
	c.Refine.BaseURL = getEnv("ANTHROPIC_BASE_URL", c.Refine.BaseURL)
	c.Refine.Model = getEnv("REFINE_MODEL", c.Refine.Model)
	if c.Refine.MaxTokens, err = getEnvInt("REFINE_MAX_TOKENS", c.Refine.MaxTokens); err != nil {
		return err
	}

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Redis.Stream = getEnv("REDIS_STREAM", c.Redis.Stream)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	return nil
}

func (c *Config) normalize() {
	if c.UploadPath == "" {
		c.UploadPath = filepath.Join(c.DataPath, "uploads")
	}
	if c.OutputPath == "" {
		c.OutputPath = filepath.Join(c.DataPath, "output")
	}
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.AssemblyAI.APIKey = strings.TrimSpace(c.AssemblyAI.APIKey)
	c.Refine.APIKey = strings.TrimSpace(c.Refine.APIKey)
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// PollInterval returns the transcription status poll interval.
func (c *Config) PollInterval() time.Duration {
	d, _ := parseInterval(c.AssemblyAI.PollInterval)
	return d
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ArtifactBaseURL is the URL prefix under which subtitle files are served.
func (c *Config) ArtifactBaseURL() string {
	return c.PublicBaseURL + "/output"
}

// LockPath is the file guarding the data directory against a second process.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataPath, "autosub.lock")
}

// EnsureDirs creates every directory the service writes to.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.DataPath, c.UploadPath, c.OutputPath}
	if c.CachePath != "" {
		dirs = append(dirs, filepath.Dir(c.CachePath))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Redacted returns a copy safe to log: secrets are masked.
func (c Config) Redacted() Config {
	c.AssemblyAI.APIKey = mask(c.AssemblyAI.APIKey)
	c.Refine.APIKey = mask(c.Refine.APIKey)
	if c.Redis.URL != "" {
		c.Redis.URL = redactURL(c.Redis.URL)
	}
	c.CORSOrigins = append([]string(nil), c.CORSOrigins...)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// redactURL hides the userinfo part of a connection URL.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://****@" + rest[at+1:]
	}
	return raw
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: expected an integer, got %q", key, v)
	}
	return n, nil
}

// parseInterval accepts a Go duration ("3s", "500ms") or a bare number of seconds.
func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
