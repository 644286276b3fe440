package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghostpass/senate/internal/domain"
)

// Config is the complete service configuration. It is loaded from YAML,
// then deployment values and secrets are overlaid from the environment.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`
	// Senate configures the roster, the judge and run handling.
	Senate SenateConfig `yaml:"senate"`
	// Ghost configures signal resolution and admission grading.
	Ghost GhostConfig `yaml:"ghost"`
	// Stores selects and addresses the persistence backends.
	Stores StoreConfig `yaml:"stores"`
}

// ServerConfig configures the HTTP listener and its shutdown.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// SenateConfig defines the seats and how a run is evaluated.
type SenateConfig struct {
	// Seats is the roster. Ids must cover 1..len(Seats).
	Seats []domain.Seat `yaml:"seats" validate:"required,min=1,dive"`

	// Weights are the default seat weights used before any calibration is
	// saved. When empty, weights are split evenly across the roster.
	Weights domain.Weights `yaml:"weights,omitempty"`

	// SeatTimeout bounds one seat's call, retries included.
	SeatTimeout   time.Duration `yaml:"seat_timeout" validate:"gte=0"`
	SeatMaxTokens int           `yaml:"seat_max_tokens" validate:"gte=0"`

	Judge JudgeSettings `yaml:"judge"`

	// Contest holds the thresholds that flag a run as contested.
	Contest domain.ContestRule `yaml:"contest"`

	// MinInputChars and MaxInputChars bound the trimmed submission length
	// in characters.
	MinInputChars int `yaml:"min_input_chars" validate:"min=1"`
	MaxInputChars int `yaml:"max_input_chars" validate:"gtefield=MinInputChars"`

	// RecordTimeout bounds best-effort run persistence after synthesis.
	RecordTimeout time.Duration `yaml:"record_timeout" validate:"gte=0"`
}

// JudgeSettings selects the synthesizing model.
type JudgeSettings struct {
	// Model is a registry spec in provider/model form.
	Model     string        `yaml:"model" validate:"required,modelformat"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxTokens int           `yaml:"max_tokens" validate:"gte=0"`
}

// GhostConfig tunes the signal resolver.
type GhostConfig struct {
	// MinimumAge is the admission age checked by the age_verified claim.
	MinimumAge int `yaml:"minimum_age" validate:"min=1,max=120"`
	// MinSignals is the fewest signals a green pack may carry.
	MinSignals int `yaml:"min_signals" validate:"gte=0"`
	// AdmissionPurposes are token purposes graded with the identity rules.
	AdmissionPurposes []string `yaml:"admission_purposes" validate:"dive,required"`
	// Precedence is the grade rule order.
	Precedence []string `yaml:"precedence" validate:"required,min=1,unique,dive,graderule"`
}

// StoreConfig selects the persistence backends.
type StoreConfig struct {
	// Backend is "memory" or "postgres".
	Backend     string `yaml:"backend" validate:"required,oneof=memory postgres"`
	DatabaseURL string `yaml:"database_url" validate:"required_if=Backend postgres"`

	// SupabaseURL and SupabaseKey enable the Supabase run recorder and
	// subject store when both are set.
	SupabaseURL string `yaml:"supabase_url" validate:"omitempty,url"`
	SupabaseKey string `yaml:"-"`

	// RedisURL enables the Redis token store when set.
	RedisURL string `yaml:"redis_url"`
}

// DefaultConfig returns a runnable configuration with the production roster
// and in-memory stores.
func DefaultConfig() Config {
	r := domain.DefaultRoster()
	policy := domain.DefaultGradePolicy()
	precedence := make([]string, 0, len(policy.Precedence))
	for _, rule := range policy.Precedence {
		precedence = append(precedence, string(rule))
	}
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 20 * time.Second,
		},
		Senate: SenateConfig{
			Seats:         r.Seats(),
			SeatTimeout:   25 * time.Second,
			SeatMaxTokens: 800,
			Judge: JudgeSettings{
				Model:     "anthropic/claude-4-sonnet",
				Timeout:   40 * time.Second,
				MaxTokens: 1200,
			},
			Contest:       domain.DefaultContestRule(),
			MinInputChars: DefaultMinInputChars,
			MaxInputChars: DefaultMaxInputChars,
			RecordTimeout: 5 * time.Second,
		},
		Ghost: GhostConfig{
			MinimumAge:        domain.DefaultMinimumAge,
			MinSignals:        policy.MinSignals,
			AdmissionPurposes: policy.AdmissionPurposes,
			Precedence:        precedence,
		},
		Stores: StoreConfig{Backend: "memory"},
	}
}

// Environment variables overlaid by ApplyEnv.
const (
	EnvAddr        = "SENATE_ADDR"
	EnvDatabaseURL = "DATABASE_URL"
	EnvSupabaseURL = "SUPABASE_URL"
	EnvSupabaseKey = "SUPABASE_SERVICE_KEY"
	EnvRedisURL    = "REDIS_URL"
)

// LoadConfig reads a YAML file over DefaultConfig, applies the environment
// and validates the result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decodeConfig(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig decodes YAML from r over DefaultConfig and validates it
// without consulting the environment.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := decodeConfig(r, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeConfig(r io.Reader, cfg *Config) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

// ApplyEnv overlays deployment values from lookup, which is normally
// os.LookupEnv. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvAddr, &c.Server.Addr)
	set(EnvDatabaseURL, &c.Stores.DatabaseURL)
	set(EnvSupabaseURL, &c.Stores.SupabaseURL)
	set(EnvSupabaseKey, &c.Stores.SupabaseKey)
	set(EnvRedisURL, &c.Stores.RedisURL)
	if c.Stores.DatabaseURL != "" && c.Stores.Backend == "memory" {
		c.Stores.Backend = "postgres"
	}
}

// Validate runs struct tag validation and then the cross-field checks the
// tags cannot express. Failures are reported as one *domain.ValidationError.
func (c Config) Validate() error {
	v, err := newValidator()
	if err != nil {
		return err
	}
	verr := domain.NewValidationError("config")
	if err := v.Struct(c); err != nil {
		formatValidationErrors(err, verr)
		return verr
	}

	roster, err := domain.NewRoster(c.Senate.Seats)
	if err != nil {
		appendValidation(verr, "senate.seats", err)
		return verr
	}
	if len(c.Senate.Weights) > 0 {
		if err := c.Senate.Weights.Validate(roster); err != nil {
			appendValidation(verr, "senate.weights", err)
		}
	}
	if roster.Enabled() == 0 {
		verr.AddError("senate.seats: at least one seat must be enabled")
	}
	if (c.Stores.SupabaseURL == "") != (c.Stores.SupabaseKey == "") {
		verr.AddErrorf("stores: %s and %s must be set together", EnvSupabaseURL, EnvSupabaseKey)
	}
	return verr.ErrOrNil()
}

func appendValidation(dst *domain.ValidationError, prefix string, err error) {
	var src *domain.ValidationError
	if errors.As(err, &src) {
		for _, msg := range src.Errors {
			dst.AddErrorf("%s: %s", prefix, msg)
		}
		return
	}
	dst.AddErrorf("%s: %v", prefix, err)
}

// Roster builds the validated roster.
func (c Config) Roster() (domain.Roster, error) {
	return domain.NewRoster(c.Senate.Seats)
}

// DefaultWeights returns the configured default weights, or an even split
// across roster when none are configured.
func (c Config) DefaultWeights(roster domain.Roster) domain.Weights {
	if len(c.Senate.Weights) > 0 {
		return c.Senate.Weights.Clone()
	}
	return domain.DefaultWeights(roster)
}

// GradePolicy converts the ghost settings into a domain policy.
func (c Config) GradePolicy() domain.GradePolicy {
	p := domain.GradePolicy{
		MinSignals:        c.Ghost.MinSignals,
		AdmissionPurposes: c.Ghost.AdmissionPurposes,
	}
	for _, rule := range c.Ghost.Precedence {
		p.Precedence = append(p.Precedence, domain.GradeRule(rule))
	}
	return p
}
