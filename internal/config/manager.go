package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"tweetbot/internal/errs"
	logx "tweetbot/pkg/logx"
)

const (
	EnvAPIKey            = "TWITTER_API_KEY"
	EnvAPISecret         = "TWITTER_API_SECRET"
	EnvAccessToken       = "TWITTER_ACCESS_TOKEN"
	EnvAccessTokenSecret = "TWITTER_ACCESS_TOKEN_SECRET"
	EnvTweetsFile        = "TWEETS_FILE"

	// DefaultEnvFile is loaded for local development when it exists.
	DefaultEnvFile = "tweepy_keys.env"
)

// Manager loads the config file, the env file and the environment overlay.
type Manager struct {
	path    string
	envFile string

	log    logx.Logger
	getenv func(string) string

	cfg *Config
}

// NewManager creates a manager. path may be empty (defaults only);
// envFile may be empty (DefaultEnvFile is tried).
func NewManager(path, envFile string) *Manager {
	if strings.TrimSpace(envFile) == "" {
		envFile = DefaultEnvFile
	}
	return &Manager{path: path, envFile: envFile, getenv: os.Getenv}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// Parse reads the config file over Default(). Unknown keys are rejected.
func (m *Manager) Parse() (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(m.path) == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, errs.Config(m.path, err)
	}
	jb, format, err := coerceToJSONBytes(m.path, b)
	if err != nil {
		return nil, errs.Config(m.path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errs.Config(m.path, fmt.Errorf("%s decode: %w", format, err))
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = errors.New("trailing data")
		}
		return nil, errs.Config(m.path, err)
	}
	return cfg, nil
}

// Load parses the file, applies the environment and validates the result.
func (m *Manager) Load() (*Config, error) { return m.load(true) }

// LoadLocal is Load for offline commands: API credentials are not required.
func (m *Manager) LoadLocal() (*Config, error) { return m.load(false) }

func (m *Manager) load(needCreds bool) (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	m.loadEnvFile()
	m.applyEnv(cfg)
	if needCreds {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateLocal()
	}
	if err != nil {
		return nil, err
	}
	m.cfg = cfg
	return cfg, nil
}

// Get returns the last loaded config (nil before Load).
func (m *Manager) Get() *Config { return m.cfg }

func (m *Manager) loadEnvFile() {
	if _, err := os.Stat(m.envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) && !m.log.IsZero() {
			m.log.Warn("env file not readable", logx.String("path", m.envFile), logx.Err(err))
		}
		return
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(m.envFile); err != nil {
		if !m.log.IsZero() {
			m.log.Warn("env file load failed", logx.String("path", m.envFile), logx.Err(err))
		}
		return
	}
	if !m.log.IsZero() {
		m.log.Info("env file loaded", logx.String("path", m.envFile))
	}
}

func (m *Manager) applyEnv(cfg *Config) {
	get := func(k string) string { return strings.TrimSpace(m.getenv(k)) }
	if p := get(EnvTweetsFile); p != "" {
		cfg.Content.Path = p
	}
	cfg.Credentials = Credentials{
		APIKey:            get(EnvAPIKey),
		APISecret:         get(EnvAPISecret),
		AccessToken:       get(EnvAccessToken),
		AccessTokenSecret: get(EnvAccessTokenSecret),
	}
}
