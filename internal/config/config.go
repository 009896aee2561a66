package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"taskdeck/internal/logging"
	"taskdeck/internal/task"
)

const (
	AppName               = "taskdeck"
	DefaultConfigFileName = "config.toml"
	DefaultCacheName      = "cache.db"
	DefaultLogName        = "taskdeck.log"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "TASKDECK_CONFIG"
)

type Keymap struct {
	Quit         string `toml:"quit"`
	Add          string `toml:"add"`
	Edit         string `toml:"edit"`
	Delete       string `toml:"delete"`
	Toggle       string `toml:"toggle"`
	Up           string `toml:"up"`
	Down         string `toml:"down"`
	Refresh      string `toml:"refresh"`
	Reload       string `toml:"reload"`
	NextView     string `toml:"next_view"`
	PrevView     string `toml:"prev_view"`
	NextCategory string `toml:"next_category"`
	PrevCategory string `toml:"prev_category"`
	Confirm      string `toml:"confirm"`
	Cancel       string `toml:"cancel"`
}

type API struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Timeout string `toml:"timeout"`
}

type Cache struct {
	// Path is resolved against the config directory. Empty disables the cache.
	Path string `toml:"path"`
}

type Log struct {
	Path   string `toml:"path"`
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type UI struct {
	DefaultView     string   `toml:"default_view"`
	DefaultCategory string   `toml:"default_category"`
	RefreshInterval string   `toml:"refresh_interval"`
	Categories      []string `toml:"categories"`
	DefaultPriority int      `toml:"default_priority"`
}

type Config struct {
	API   API    `toml:"api"`
	Cache Cache  `toml:"cache"`
	Log   Log    `toml:"log"`
	UI    UI     `toml:"ui"`
	Keys  Keymap `toml:"keys"`
}

// DefaultConfigDir uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ResolveConfigPath picks the config file: the flag value, then
// TASKDECK_CONFIG, then the default directory.
func ResolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return filepath.Join(DefaultConfigDir(), DefaultConfigFileName)
}

// LoadOrCreate reads path, writing the defaults there first if the file
// does not exist. Relative cache and log paths are resolved against the
// directory holding the file.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, fmt.Errorf("write default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.fillKeys()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Validate reports the first setting that would fail at startup.
func (c Config) Validate() error {
	base, err := url.Parse(c.API.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("api.base_url %q: want an http or https url", c.API.BaseURL)
	}
	if _, err := parseDuration("api.timeout", c.API.Timeout); err != nil {
		return err
	}
	if _, err := parseDuration("ui.refresh_interval", c.UI.RefreshInterval); err != nil {
		return err
	}
	if _, err := task.ParseView(c.UI.DefaultView); err != nil {
		return fmt.Errorf("ui.default_view: %w", err)
	}
	if c.UI.DefaultCategory == "" {
		return errors.New("ui.default_category is empty")
	}
	if !task.Priority(c.UI.DefaultPriority).Valid() {
		return fmt.Errorf("ui.default_priority %d: want 1, 2 or 3", c.UI.DefaultPriority)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return err
	}
	return nil
}

// Timeout is the per-request limit. Zero or unset means the client default.
func (c Config) Timeout() time.Duration {
	d, _ := parseDuration("api.timeout", c.API.Timeout)
	return d
}

// RefreshInterval is the period of the background reload. Zero disables it.
func (c Config) RefreshInterval() time.Duration {
	d, _ := parseDuration("ui.refresh_interval", c.UI.RefreshInterval)
	return d
}

func (c Config) View() task.View {
	v, _ := task.ParseView(c.UI.DefaultView)
	return v
}

func (c Config) Priority() task.Priority {
	return task.Priority(c.UI.DefaultPriority)
}

func parseDuration(key, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s %q: must not be negative", key, s)
	}
	return d, nil
}

func (c *Config) resolvePaths(dir string) {
	if c.Cache.Path != "" && !filepath.IsAbs(c.Cache.Path) {
		c.Cache.Path = filepath.Join(dir, c.Cache.Path)
	}
	if c.Log.Path != "" && !filepath.IsAbs(c.Log.Path) {
		c.Log.Path = filepath.Join(dir, c.Log.Path)
	}
}

// fillKeys restores defaults for bindings left blank in the file.
func (c *Config) fillKeys() {
	def := Default().Keys
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&c.Keys.Quit, def.Quit)
	fill(&c.Keys.Add, def.Add)
	fill(&c.Keys.Edit, def.Edit)
	fill(&c.Keys.Delete, def.Delete)
	fill(&c.Keys.Toggle, def.Toggle)
	fill(&c.Keys.Up, def.Up)
	fill(&c.Keys.Down, def.Down)
	fill(&c.Keys.Refresh, def.Refresh)
	fill(&c.Keys.Reload, def.Reload)
	fill(&c.Keys.NextView, def.NextView)
	fill(&c.Keys.PrevView, def.PrevView)
	fill(&c.Keys.NextCategory, def.NextCategory)
	fill(&c.Keys.PrevCategory, def.PrevCategory)
	fill(&c.Keys.Confirm, def.Confirm)
	fill(&c.Keys.Cancel, def.Cancel)
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func Default() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:8080",
			Timeout: "10s",
		},
		Cache: Cache{Path: DefaultCacheName},
		Log: Log{
			Path:   DefaultLogName,
			Level:  "info",
			Format: "text",
		},
		UI: UI{
			DefaultView:     string(task.ViewAll),
			DefaultCategory: task.CategoryAll,
			RefreshInterval: "30s",
			Categories:      []string{"Work", "Study", "Life", "Shopping", "Health", "Other"},
			DefaultPriority: int(task.PriorityMedium),
		},
		Keys: Keymap{
			Quit:         "q",
			Add:          "a",
			Edit:         "e",
			Delete:       "d",
			Toggle:       " ",
			Up:           "k",
			Down:         "j",
			Refresh:      "r",
			Reload:       "R",
			NextView:     "v",
			PrevView:     "V",
			NextCategory: "c",
			PrevCategory: "C",
			Confirm:      "y",
			Cancel:       "esc",
		},
	}
}
