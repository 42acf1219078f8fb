package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/futuretech6/youth-zhejiang-check-in/internal/models"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"github.com/spf13/viper"
)

// Source tells where the identities came from.
type Source string

const (
	SourceEnv  Source = "environ"
	SourceFile Source = "file"
)

// OpenIDEnv is the environment variable holding comma separated openids.
const OpenIDEnv = "OPENID"

// Config holds application configuration. It is built once at startup and
// passed explicitly; nothing in it is mutated afterwards.
type Config struct {
	Source     Source
	Verbose    bool
	Identities []models.Identity
	Profile    ProfileConfig
	HTTP       HTTPConfig
	Redis      RedisConfig
	Batch      BatchConfig
	Metrics    MetricsConfig
	Log        LogConfig
	// UsersPath is the users file actually read (or that would be read).
	UsersPath string
}

// ProfileConfig mirrors profile.toml: remote endpoints plus static request fields.
type ProfileConfig struct {
	URL       EndpointsConfig
	AppID     string
	UserAgent string
}

type EndpointsConfig struct {
	AccessToken   string
	LastInfo      string
	CurrentCourse string
	UserInfo      string
	Join          string
}

type HTTPConfig struct {
	Timeout time.Duration
	// RPS <= 0 disables pacing.
	RPS   float64
	Burst int
}

type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	HistoryTTL time.Duration
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

type BatchConfig struct {
	ContinueOnError bool
	SkipDoneToday   bool
}

type MetricsConfig struct {
	TextfilePath string
}

type LogConfig struct {
	Level      string
	Timestamps bool
}

type userEntry struct {
	OpenID string `toml:"openid"`
	Nid    string `toml:"nid"`
	CardNo string `toml:"cardNo"`
}

// LoadConfig loads configuration from the environment, an optional .env file,
// profile.toml and (unless OPENID is set) the users file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("CHECKIN_PROFILE_PATH", "profile.toml")
	v.SetDefault("CHECKIN_CONFIG_PATH", "config.toml")
	v.SetDefault("CHECKIN_HTTP_TIMEOUT", 30)
	v.SetDefault("CHECKIN_RATE_RPS", 0)
	v.SetDefault("CHECKIN_RATE_BURST", 1)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CHECKIN_HISTORY_TTL_HOURS", 48)
	v.SetDefault("LOG_LEVEL", "info")

	profile, err := loadProfile(v.GetString("CHECKIN_PROFILE_PATH"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Profile: profile,
		HTTP: HTTPConfig{
			Timeout: time.Duration(v.GetInt("CHECKIN_HTTP_TIMEOUT")) * time.Second,
			RPS:     v.GetFloat64("CHECKIN_RATE_RPS"),
			Burst:   v.GetInt("CHECKIN_RATE_BURST"),
		},
		Redis: RedisConfig{
			Host:       v.GetString("REDIS_HOST"),
			Port:       v.GetString("REDIS_PORT"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			HistoryTTL: time.Duration(v.GetInt("CHECKIN_HISTORY_TTL_HOURS")) * time.Hour,
		},
		Batch: BatchConfig{
			ContinueOnError: v.GetBool("CHECKIN_CONTINUE_ON_ERROR"),
			SkipDoneToday:   v.GetBool("CHECKIN_SKIP_DONE_TODAY"),
		},
		Metrics: MetricsConfig{TextfilePath: v.GetString("CHECKIN_METRICS_FILE")},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Timestamps: v.GetBool("LOG_TIMESTAMPS"),
		},
		UsersPath: v.GetString("CHECKIN_CONFIG_PATH"),
	}

	if raw, ok := os.LookupEnv(OpenIDEnv); ok {
		cfg.Source = SourceEnv
		cfg.Verbose = false
		cfg.Identities = ParseOpenIDList(raw)
	} else {
		cfg.Source = SourceFile
		cfg.Verbose = true
		cfg.Identities, err = loadUsers(cfg.UsersPath)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseOpenIDList splits the OPENID variable. Blank entries are skipped.
func ParseOpenIDList(raw string) []models.Identity {
	var out []models.Identity
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		out = append(out, models.Identity{OpenID: id})
	}
	return out
}

func loadProfile(path string) (ProfileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("CHECKIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// env-only profiles are fine; a present but broken file is not
		if _, statErr := os.Stat(path); statErr == nil {
			return ProfileConfig{}, fmt.Errorf("read profile %s: %w", path, err)
		}
	}

	return ProfileConfig{
		URL: EndpointsConfig{
			AccessToken:   v.GetString("profile.url.accessToken"),
			LastInfo:      v.GetString("profile.url.lastInfo"),
			CurrentCourse: v.GetString("profile.url.currentCourse"),
			UserInfo:      v.GetString("profile.url.userInfo"),
			Join:          v.GetString("profile.url.join"),
		},
		AppID:     v.GetString("profile.other.wxAppId"),
		UserAgent: v.GetString("profile.other.UA"),
	}, nil
}

func loadUsers(path string) ([]models.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users %s: %w", path, err)
	}

	var doc struct {
		User map[string]userEntry `toml:"user"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode users %s: %w", path, err)
	}
	order, err := userOrder(data)
	if err != nil {
		return nil, fmt.Errorf("scan users %s: %w", path, err)
	}

	out := make([]models.Identity, 0, len(doc.User))
	for _, name := range order {
		u, ok := doc.User[name]
		if !ok {
			continue
		}
		out = append(out, models.Identity{
			Name:       name,
			OpenID:     strings.TrimSpace(u.OpenID),
			NodeID:     strings.TrimSpace(u.Nid),
			CardNumber: strings.TrimSpace(u.CardNo),
		})
	}
	return out, nil
}

// userOrder returns the names under the user table in the order they are
// written, keeping their case. Both [user.<name>] headers and dotted keys
// (user.<name>.openid = ..., or name = {...} inside [user]) count.
func userOrder(data []byte) ([]string, error) {
	var (
		p       unstable.Parser
		current []string
		names   []string
		seen    = map[string]bool{}
	)
	add := func(path []string) {
		if len(path) < 2 || path[0] != "user" || seen[path[1]] {
			return
		}
		seen[path[1]] = true
		names = append(names, path[1])
	}

	p.Reset(data)
	for p.NextExpression() {
		e := p.Expression()
		switch e.Kind {
		case unstable.Table, unstable.ArrayTable:
			current = keyParts(e.Key())
			if e.Kind == unstable.Table {
				add(current)
			}
		case unstable.KeyValue:
			full := append(append([]string{}, current...), keyParts(e.Key())...)
			add(full)
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return names, nil
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	required := []struct{ key, val string }{
		{"profile.url.accessToken", c.Profile.URL.AccessToken},
		{"profile.url.lastInfo", c.Profile.URL.LastInfo},
		{"profile.url.currentCourse", c.Profile.URL.CurrentCourse},
		{"profile.url.userInfo", c.Profile.URL.UserInfo},
		{"profile.url.join", c.Profile.URL.Join},
		{"profile.other.wxAppId", c.Profile.AppID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}
	if len(c.Identities) == 0 {
		return errors.New("no identities configured: set OPENID or add [user.<name>] tables")
	}
	for _, id := range c.Identities {
		if id.OpenID == "" {
			return fmt.Errorf("user %q has no openid", id.Name)
		}
	}
	return nil
}
