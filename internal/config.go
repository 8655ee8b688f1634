package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Write modes for ordinary-note processing results.
const (
	WriteModeRespond = "respond" // standalone file in the response folder
	WriteModeInline  = "inline"  // marked block under a heading in the source note
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	Daily   DailyConfig       `yaml:"daily_notes"`
	LLM     LLMConfig         `yaml:"llm"`
	Engine  EngineConfig      `yaml:"engine"`
	Journal JournalConfig     `yaml:"journal"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Daily.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the Markdown vault and its visibility rules.
type VaultConfig struct {
	Path string `yaml:"path"`
	// ExcludedFolders lists relative folder names invisible to the engine
	// at every stage: detection, classification, search, and writing.
	ExcludedFolders []string `yaml:"excluded_folders"`
	// ResponseFolder is where standalone AI outputs are stored,
	// relative to the vault root.
	ResponseFolder string `yaml:"response_folder"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ResponseFolder, validation.Required),
	)
}

// DailyConfig describes date-structured daily notes.
type DailyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Folder  string `yaml:"folder"`
	// FileFormats are filename patterns with {token} placeholders, tried in
	// order when resolving a date; the first is the creation target.
	FileFormats []string `yaml:"file_formats"`
	// DateFormats maps placeholder tokens to Go reference layouts,
	// e.g. full_date: "2006-01-02". Built-in tokens (weekday, year, ...)
	// are always available.
	DateFormats map[string]string `yaml:"date_formats"`
	// Template is the initial content for a freshly created daily note,
	// with the same {token} placeholders substituted.
	Template string `yaml:"template"`
	// ReviewHeading anchors generated daily summaries.
	ReviewHeading string `yaml:"review_heading"`
}

// Validate validates the daily-notes configuration.
func (c *DailyConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Folder, validation.Required),
		validation.Field(&c.FileFormats, validation.Required, validation.Length(1, 0)),
		validation.Field(&c.ReviewHeading, validation.Required),
	)
}

// LLMConfig holds the chat-completion endpoint settings.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// ContextBudget bounds the character size of prompt content; larger
	// notes are middle-truncated with an explicit elision marker.
	ContextBudget  int     `yaml:"context_budget"`
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	BackoffSeconds float64 `yaml:"backoff_seconds"`
}

// Timeout returns the per-call timeout.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// Backoff returns the fixed delay between retries.
func (c *LLMConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds * float64(time.Second))
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.ContextBudget, validation.Required, validation.Min(200)),
		validation.Field(&c.TimeoutSeconds, validation.Min(0.0)),
		validation.Field(&c.MaxRetries, validation.Min(0)),
	)
}

// EngineConfig tunes the change-driven processing pipeline.
type EngineConfig struct {
	// DebounceSeconds is the quiet period after the last change before a
	// note is considered stable and dispatched.
	DebounceSeconds float64 `yaml:"debounce_seconds"`
	// Workers bounds the number of concurrent pipeline runs.
	Workers int `yaml:"workers"`
	// MinNoteLength skips notes shorter than this many bytes.
	MinNoteLength int `yaml:"min_note_length"`
	// WriteMode selects where ordinary-note results land: "respond" or "inline".
	WriteMode string `yaml:"write_mode"`
	// InlineHeading anchors inline results inside the source note.
	InlineHeading string `yaml:"inline_heading"`
	SystemPrompt  string `yaml:"system_prompt"`
}

// DebounceWindow returns the debounce window as a duration.
func (c *EngineConfig) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceSeconds * float64(time.Second))
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceSeconds, validation.Required, validation.Min(0.1)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.MinNoteLength, validation.Min(0)),
		validation.Field(&c.WriteMode, validation.Required, validation.In(WriteModeRespond, WriteModeInline)),
		validation.Field(&c.InlineHeading, validation.Required),
		validation.Field(&c.SystemPrompt, validation.Required),
	)
}

// JournalConfig holds the processing-journal database location.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the HTTP surface.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:            "./vault",
			ExcludedFolders: []string{"Templates", ".obsidian"},
			ResponseFolder:  "AI Responses",
		},
		Daily: DailyConfig{
			Enabled:     true,
			Folder:      "Daily Notes",
			FileFormats: []string{"{full_date}.md"},
			DateFormats: map[string]string{
				"full_date": "2006-01-02",
			},
			Template: "# {full_date} ({weekday})\n\n## Highlights\n\n## Tasks\n\n## Notes\n",
			ReviewHeading: "## Review",
		},
		LLM: LLMConfig{
			BaseURL:        "http://localhost:1234/v1",
			Model:          "local-model",
			Temperature:    0.7,
			MaxTokens:      1024,
			ContextBudget:  4000,
			TimeoutSeconds: 90,
			MaxRetries:     3,
			BackoffSeconds: 1,
		},
		Engine: EngineConfig{
			DebounceSeconds: 2,
			Workers:         2,
			MinNoteLength:   25,
			WriteMode:       WriteModeRespond,
			InlineHeading:   "## AI Analysis",
			SystemPrompt:    "You are a concise assistant for a personal markdown knowledge base. Analyze the note you are given and reply in markdown.",
		},
		Journal: JournalConfig{
			Path: "./secondbrain.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
