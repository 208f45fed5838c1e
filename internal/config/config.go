// Package config loads the idtoken CLI configuration from a YAML file,
// IDTOKEN_ environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/auth0/go-idtoken"
	idvalidator "github.com/auth0/go-idtoken/validator"
)

// EnvPrefix is prepended to every environment variable, e.g. IDTOKEN_ISSUER.
const EnvPrefix = "IDTOKEN"

// Config holds the CLI configuration.
type Config struct {
	Issuer         string        `mapstructure:"issuer" validate:"required,url"`
	Audience       string        `mapstructure:"audience" validate:"required"`
	Authority      string        `mapstructure:"authority" validate:"omitempty,url"`
	ClientSecret   string        `mapstructure:"client_secret" secret:"true"`
	SecretEncoding string        `mapstructure:"secret_encoding" default:"plain" validate:"oneof=plain base64url"`
	Algorithm      string        `mapstructure:"algorithm" validate:"omitempty,oneof=HS256 RS256"`
	ClockSkew      time.Duration `mapstructure:"clock_skew" default:"60s" validate:"gte=0"`
	MaxAge         time.Duration `mapstructure:"max_age" validate:"gte=0"`
	Nonce          string        `mapstructure:"nonce"`
	Organization   string        `mapstructure:"organization"`
	Discovery      bool          `mapstructure:"discovery"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout" default:"10s" validate:"gt=0"`

	// Output
	Output    string `mapstructure:"output" default:"json" validate:"oneof=json yaml"`
	LogLevel  string `mapstructure:"log_level" default:"warn" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" default:"text" validate:"oneof=text json"`

	// Tracing
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// Load reads configuration. path may be empty, in which case an optional
// idtoken.yaml in the working directory is used. Only flags the user set
// override file and environment values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range keys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("idtoken")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if flags != nil {
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// Requirements builds the validation requirements described by cfg.
func (c *Config) Requirements() (idtoken.Requirements, error) {
	var opts []idvalidator.Option

	opts = append(opts, idvalidator.WithAllowedClockSkew(c.ClockSkew))
	if c.Algorithm != "" {
		alg := idvalidator.ParseAlgorithm(c.Algorithm)
		if !alg.Supported() {
			return idtoken.Requirements{}, fmt.Errorf("unsupported algorithm %q", c.Algorithm)
		}
		opts = append(opts, idvalidator.WithAlgorithm(alg))
	}
	if c.Nonce != "" {
		opts = append(opts, idvalidator.WithNonce(c.Nonce))
	}
	if c.MaxAge > 0 {
		opts = append(opts, idvalidator.WithMaxAge(c.MaxAge))
	}
	if c.Organization != "" {
		opts = append(opts, idvalidator.WithOrganization(c.Organization))
	}

	return idvalidator.NewRequirements(c.Issuer, c.Audience, opts...)
}

// ValidatorOptions returns the idtoken options described by cfg.
func (c *Config) ValidatorOptions() ([]idtoken.Option, error) {
	opts := []idtoken.Option{
		idtoken.WithHTTPClient(&http.Client{Timeout: c.HTTPTimeout}, c.Discovery),
	}
	if c.Authority != "" {
		opts = append(opts, idtoken.WithAuthority(c.Authority))
	}
	if c.ClientSecret != "" {
		encoding, err := idvalidator.ParseSecretEncoding(c.SecretEncoding)
		if err != nil {
			return nil, err
		}
		opts = append(opts, idtoken.WithClientSecret(c.ClientSecret, encoding))
	}
	return opts, nil
}

// KeyAuthority is the authority whose key set is used: Authority when set,
// otherwise Issuer.
func (c *Config) KeyAuthority() string {
	if c.Authority != "" {
		return c.Authority
	}
	return c.Issuer
}

// String returns a string representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := v.Type()

	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprintf("%v", v.Field(i).Interface())
		if field.Tag.Get("secret") == "true" && value != "" {
			value = "***REDACTED***"
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(field.Name + ": " + value)
	}
	sb.WriteString("}")
	return sb.String()
}

// keys lists the mapstructure keys of Config.
func keys() []string {
	t := reflect.TypeOf(Config{})
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("mapstructure"); key != "" {
			out = append(out, key)
		}
	}
	return out
}
