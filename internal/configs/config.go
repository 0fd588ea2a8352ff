package configs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Defaults written by Init and used for anything missing from config.toml.
const (
	DefaultIdleTimeout       = 5 * time.Minute
	DefaultIdleCheckInterval = 15 * time.Second
	DefaultMinPasswordLength = 6
	DefaultOrigin            = "https://diario.localhost"
	DefaultRPID              = "diario.localhost"
	DefaultRPName            = "Diario"
	DefaultAuthenticator     = AuthenticatorNone
	DefaultRedirectURI       = "http://localhost:53682/callback"
	DefaultFolder            = "/Diario"
)

// Values of webauthn.authenticator.
const (
	// AuthenticatorNone disables biometric unlock.
	AuthenticatorNone = "none"

	// AuthenticatorSoftware keeps the credential key and user handle in
	// state.db next to the password vault, so anyone who can read state.db
	// can recover the journal password. Only for tests and demos.
	AuthenticatorSoftware = "software"
)

// Duration is a time.Duration stored as text such as "5m".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Device   Device   `toml:"device"`
	Security Security `toml:"security"`
	WebAuthn WebAuthn `toml:"webauthn"`
	Dropbox  Dropbox  `toml:"dropbox"`
}

type Device struct {
	ID   string `toml:"id" validate:"omitempty,uuid"`
	Name string `toml:"name" validate:"max=64"`
}

type Security struct {
	IdleTimeout       Duration `toml:"idle_timeout" validate:"mindur=10s"`
	IdleCheckInterval Duration `toml:"idle_check_interval" validate:"mindur=1s"`
	MinPasswordLength int      `toml:"min_password_length" validate:"min=1,max=1024"`
}

type WebAuthn struct {
	Origin        string `toml:"origin" validate:"required,url"`
	RPID          string `toml:"rp_id" validate:"required,hostname"`
	RPName        string `toml:"rp_name" validate:"required,max=64"`
	Authenticator string `toml:"authenticator" validate:"oneof=software none"`
}

type Dropbox struct {
	AppKey      string `toml:"app_key" validate:"omitempty,alphanum,max=64"`
	RedirectURI string `toml:"redirect_uri" validate:"required,url"`
	Folder      string `toml:"folder" validate:"required,startswith=/"`
}

// Default returns a configuration with every default filled in and no
// device id.
func Default() *Config {
	return &Config{
		Security: Security{
			IdleTimeout:       Duration(DefaultIdleTimeout),
			IdleCheckInterval: Duration(DefaultIdleCheckInterval),
			MinPasswordLength: DefaultMinPasswordLength,
		},
		WebAuthn: WebAuthn{
			Origin:        DefaultOrigin,
			RPID:          DefaultRPID,
			RPName:        DefaultRPName,
			Authenticator: DefaultAuthenticator,
		},
		Dropbox: Dropbox{
			RedirectURI: DefaultRedirectURI,
			Folder:      DefaultFolder,
		},
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("mindur", func(fl validator.FieldLevel) bool {
		floor, err := time.ParseDuration(fl.Param())
		if err != nil {
			return false
		}
		return time.Duration(fl.Field().Int()) >= floor
	})
}

// Validate checks field constraints and the relations between fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Security.IdleCheckInterval > c.Security.IdleTimeout {
		return fmt.Errorf("security.idle_check_interval: must not exceed idle_timeout")
	}
	origin, err := url.Parse(c.WebAuthn.Origin)
	if err != nil {
		return fmt.Errorf("webauthn.origin: %w", err)
	}
	host := origin.Hostname()
	if host != c.WebAuthn.RPID && !strings.HasSuffix(host, "."+c.WebAuthn.RPID) {
		return fmt.Errorf("webauthn.rp_id: %q is not a registrable suffix of the origin host %q", c.WebAuthn.RPID, host)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := fieldPath(e.Namespace())
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "mindur":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", field, e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}

// fieldPath turns "Config.Security.IdleTimeout" into the TOML key
// "security.idle_timeout".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for key, f := range fields {
		if strings.EqualFold(strings.Join(parts, "."), f.goPath) {
			return key
		}
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// Load reads path, filling missing values with defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(path, config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Save validates and writes config to path.
func Save(path string, config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// GenerateDeviceID generates a new device id.
func GenerateDeviceID() string {
	return uuid.New().String()
}

// Ensure loads the config and makes sure it has a device id, writing the file
// when it had to generate one.
func Ensure(path, defaultName string) (*Config, error) {
	config, err := Load(path)
	if err != nil {
		return nil, err
	}
	if config.Device.ID != "" {
		return config, nil
	}

	config.Device.ID = GenerateDeviceID()
	if config.Device.Name == "" {
		config.Device.Name = defaultName
	}
	if err := Save(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

type field struct {
	goPath string
	get    func(*Config) string
	set    func(*Config, string) error
}

var fields = map[string]field{
	"device.name": {
		"Device.Name",
		func(c *Config) string { return c.Device.Name },
		func(c *Config, v string) error { c.Device.Name = v; return nil },
	},
	"security.idle_timeout": {
		"Security.IdleTimeout",
		func(c *Config) string { return c.Security.IdleTimeout.Std().String() },
		func(c *Config, v string) error { return c.Security.IdleTimeout.UnmarshalText([]byte(v)) },
	},
	"security.idle_check_interval": {
		"Security.IdleCheckInterval",
		func(c *Config) string { return c.Security.IdleCheckInterval.Std().String() },
		func(c *Config, v string) error { return c.Security.IdleCheckInterval.UnmarshalText([]byte(v)) },
	},
	"security.min_password_length": {
		"Security.MinPasswordLength",
		func(c *Config) string { return strconv.Itoa(c.Security.MinPasswordLength) },
		func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			c.Security.MinPasswordLength = n
			return nil
		},
	},
	"webauthn.origin": {
		"WebAuthn.Origin",
		func(c *Config) string { return c.WebAuthn.Origin },
		func(c *Config, v string) error { c.WebAuthn.Origin = v; return nil },
	},
	"webauthn.rp_id": {
		"WebAuthn.RPID",
		func(c *Config) string { return c.WebAuthn.RPID },
		func(c *Config, v string) error { c.WebAuthn.RPID = v; return nil },
	},
	"webauthn.rp_name": {
		"WebAuthn.RPName",
		func(c *Config) string { return c.WebAuthn.RPName },
		func(c *Config, v string) error { c.WebAuthn.RPName = v; return nil },
	},
	"webauthn.authenticator": {
		"WebAuthn.Authenticator",
		func(c *Config) string { return c.WebAuthn.Authenticator },
		func(c *Config, v string) error { c.WebAuthn.Authenticator = v; return nil },
	},
	"dropbox.app_key": {
		"Dropbox.AppKey",
		func(c *Config) string { return c.Dropbox.AppKey },
		func(c *Config, v string) error { c.Dropbox.AppKey = v; return nil },
	},
	"dropbox.redirect_uri": {
		"Dropbox.RedirectURI",
		func(c *Config) string { return c.Dropbox.RedirectURI },
		func(c *Config, v string) error { c.Dropbox.RedirectURI = v; return nil },
	},
	"dropbox.folder": {
		"Dropbox.Folder",
		func(c *Config) string { return c.Dropbox.Folder },
		func(c *Config, v string) error { c.Dropbox.Folder = v; return nil },
	},
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key as text.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return f.get(c), nil
}

// Set parses value into key and validates the result. On failure the config
// is left unchanged.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	updated := *c
	if err := f.set(&updated, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*c = updated
	return nil
}
