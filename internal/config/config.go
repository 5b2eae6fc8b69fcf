// ABOUTME: Optional YAML configuration file for the uptime clock
// ABOUTME: Loads defaults, decodes the file, and validates before flags override
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/anymaplay/uptime-go/internal/app"
	"github.com/anymaplay/uptime-go/internal/client"
	clocksync "github.com/anymaplay/uptime-go/internal/sync"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the uptime clock reads at startup
type Config struct {
	BaseURL string `yaml:"base_url" validate:"required,http_url"`

	Poll time.Duration `yaml:"poll" validate:"min=1s"`
	Tick time.Duration `yaml:"tick" validate:"min=10ms"`

	// Retries after the first attempt; 0 or -1 disables retrying
	Retries    int           `yaml:"retries" validate:"min=-1,max=100"`
	RetryDelay time.Duration `yaml:"retry_delay" validate:"gt=0"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`

	Regression string `yaml:"regression" validate:"oneof=accept max"`

	LogFile string `yaml:"log_file" validate:"required"`
	Debug   bool   `yaml:"debug"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		BaseURL:    client.DefaultBaseURL,
		Poll:       60 * time.Second,
		Tick:       time.Second,
		Retries:    client.DefaultMaxRetries,
		RetryDelay: client.DefaultRetryDelay,
		Timeout:    client.DefaultTimeout,
		Regression: clocksync.AcceptRegression.String(),
		LogFile:    "uptime.log",
	}
}

// Load reads a YAML file on top of the defaults. Unknown keys are rejected.
// An empty file yields the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML key
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks the configuration. It does not mutate it.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ClientConfig maps the settings onto the uptime client
func (c *Config) ClientConfig() client.Config {
	// client.Config reads 0 as "use the default"; here 0 is an explicit setting
	retries := c.Retries
	if retries == 0 {
		retries = -1
	}
	return client.Config{
		BaseURL:    c.BaseURL,
		MaxRetries: retries,
		RetryDelay: c.RetryDelay,
		Timeout:    c.Timeout,
	}
}

// EngineConfig maps the settings onto the engine
func (c *Config) EngineConfig() (app.Config, error) {
	policy, err := clocksync.ParsePolicy(c.Regression)
	if err != nil {
		return app.Config{}, err
	}
	return app.Config{
		PollInterval: c.Poll,
		TickInterval: c.Tick,
		Policy:       policy,
	}, nil
}
