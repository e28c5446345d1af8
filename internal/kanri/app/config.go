package app

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/matrix"
	"github.com/bdobrica/Kanri/internal/kanri/nlp"
	"github.com/bdobrica/Kanri/internal/kanri/pipeline"
)

// Model providers.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
)

// Defaults for settings that have neither a flag nor a file value.
const (
	DefaultHTTPAddr     = ":5000"
	DefaultDatabasePath = "kanri.db"
)

// Config holds application configuration.
type Config struct {
	DiscordToken string
	// CommandGuildID registers slash commands in a single guild.
	CommandGuildID string

	ModelToken    string
	ModelProvider string
	Model         string
	ModelEndpoint string
	MaxNewTokens  int
	Temperature   float64
	// RepairJSON enables a JSON repair pass for malformed model output.
	RepairJSON bool

	InferenceTimeout time.Duration
	ConfirmTTL       time.Duration
	// RateLimit is the number of instructions per requester per minute.
	RateLimit int

	DatabasePath string
	// HTTPAddr is the liveness/metrics listener. "off" disables it.
	HTTPAddr string

	// AuditChannelID mirrors audit notices into a Discord channel.
	AuditChannelID string
	// Matrix mirrors audit notices into MatrixRoomID when both are set.
	Matrix       matrix.Config
	MatrixRoomID string

	Logger *slog.Logger
}

// LogValue keeps credentials out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", c.ModelProvider),
		slog.String("model", c.Model),
		slog.Duration("inference_timeout", c.InferenceTimeout),
		slog.Duration("confirm_ttl", c.ConfirmTTL),
		slog.Int("rate_limit", c.RateLimit),
		slog.String("database", c.DatabasePath),
		slog.String("http_addr", c.HTTPAddr),
		slog.Bool("matrix_notices", c.MatrixRoomID != ""),
		slog.Bool("discord_notices", c.AuditChannelID != ""),
	)
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN environment variable not set")
	}
	if c.ModelToken == "" {
		return errors.New("HUGGINGFACE_TOKEN environment variable not set")
	}
	switch c.ModelProvider {
	case "", ProviderHuggingFace, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown model provider %q (want %s or %s)", c.ModelProvider, ProviderHuggingFace, ProviderOpenAI)
	}
	if c.MatrixRoomID != "" && (c.Matrix.Homeserver == "" || c.Matrix.AccessToken == "") {
		return errors.New("matrix notices need a homeserver and an access token")
	}
	if c.InferenceTimeout < 0 || c.ConfirmTTL < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// withDefaults fills every zero setting.
func (c Config) withDefaults() Config {
	if c.ModelProvider == "" {
		c.ModelProvider = ProviderHuggingFace
	}
	if c.InferenceTimeout == 0 {
		c.InferenceTimeout = pipeline.DefaultTimeout
	}
	if c.ConfirmTTL == 0 {
		c.ConfirmTTL = approvals.DefaultTTL
	}
	if c.RateLimit <= 0 {
		c.RateLimit = nlp.DefaultRateLimit
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// FileConfig is the optional YAML configuration file.
//
//	model:
//	  provider: huggingface
//	  name: mistralai/Mistral-7B-Instruct-v0.1
//	  max_new_tokens: 800
//	  temperature: 0.1
//	  repair_json: true
//	rate_limit: 20
//	notify:
//	  discord_channel: "123456789012345678"
//	  matrix:
//	    homeserver: https://matrix.example.com
//	    user_id: "@kanri:example.com"
//	    access_token: ${KANRI_MATRIX_TOKEN}
//	    room: "!audit:example.com"
type FileConfig struct {
	CommandGuild string     `yaml:"command_guild"`
	Model        ModelFile  `yaml:"model"`
	RateLimit    int        `yaml:"rate_limit"`
	Notify       NotifyFile `yaml:"notify"`
}

// ModelFile is the model section of FileConfig.
type ModelFile struct {
	Provider     string  `yaml:"provider"`
	Name         string  `yaml:"name"`
	Endpoint     string  `yaml:"endpoint"`
	MaxNewTokens int     `yaml:"max_new_tokens"`
	Temperature  float64 `yaml:"temperature"`
	RepairJSON   *bool   `yaml:"repair_json"`
}

// NotifyFile is the notify section of FileConfig.
type NotifyFile struct {
	DiscordChannel string     `yaml:"discord_channel"`
	Matrix         MatrixFile `yaml:"matrix"`
}

// MatrixFile configures Matrix audit notices.
type MatrixFile struct {
	Homeserver  string `yaml:"homeserver"`
	UserID      string `yaml:"user_id"`
	AccessToken string `yaml:"access_token"`
	Room        string `yaml:"room"`
}

// LoadFile reads and parses path. An empty path yields an empty FileConfig;
// a named file that does not exist is an error. ${VAR} references are
// expanded from the environment before parsing.
func LoadFile(path string) (*FileConfig, error) {
	fc := &FileConfig{}
	path = strings.TrimSpace(path)
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fc, nil
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// Apply copies file settings into every field of cfg that is still zero,
// so values already set from flags or the environment win.
func (f *FileConfig) Apply(cfg *Config) {
	if f == nil {
		return
	}
	setString(&cfg.CommandGuildID, f.CommandGuild)
	setString(&cfg.ModelProvider, f.Model.Provider)
	setString(&cfg.Model, f.Model.Name)
	setString(&cfg.ModelEndpoint, f.Model.Endpoint)
	if cfg.MaxNewTokens == 0 {
		cfg.MaxNewTokens = f.Model.MaxNewTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = f.Model.Temperature
	}
	if !cfg.RepairJSON && f.Model.RepairJSON != nil {
		cfg.RepairJSON = *f.Model.RepairJSON
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = f.RateLimit
	}
	setString(&cfg.AuditChannelID, f.Notify.DiscordChannel)
	setString(&cfg.Matrix.Homeserver, f.Notify.Matrix.Homeserver)
	setString(&cfg.Matrix.UserID, f.Notify.Matrix.UserID)
	setString(&cfg.Matrix.AccessToken, f.Notify.Matrix.AccessToken)
	setString(&cfg.MatrixRoomID, f.Notify.Matrix.Room)
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
