package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "evogate"

// Load creates a new configuration by instantiating a Loader with the
// provided options and then invoking its Load method.
func Load(opts ...LoaderOption) (*Config, error) {
	loader := NewLoader(opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Loader is responsible for reading and merging configuration from file and
// environment. The internal mutex ensures thread-safety when loading.
type Loader struct {
	lock       sync.Mutex
	configFile string   // Optional explicit path to the configuration file.
	warnings   []string // Collected warnings during configuration resolution.
}

// LoaderOption defines a functional option for configuring a Loader.
type LoaderOption func(*Loader)

// WithConfigFile returns a LoaderOption that sets the configuration file path.
func WithConfigFile(configFile string) LoaderOption {
	return func(l *Loader) {
		l.configFile = configFile
	}
}

// NewLoader creates a new Loader instance and applies all given options.
func NewLoader(options ...LoaderOption) *Loader {
	loader := &Loader{}
	for _, option := range options {
		option(loader)
	}
	return loader
}

// Load initializes viper, reads the configuration file, and returns a fully
// built and validated Config instance.
func (l *Loader) Load() (*Config, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	v := viper.New()
	l.setupViper(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	cfg.Warnings = l.warnings
	cfg.Global.ConfigPath = v.ConfigFileUsed()

	return cfg, nil
}

func (l *Loader) setupViper(v *viper.Viper) {
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", defaultHost)
	v.SetDefault("port", defaultPort)
	v.SetDefault("logFormat", "text")
	v.SetDefault("auth.maxResolveAttempts", defaultMaxResolveAttempts)
	v.SetDefault("platform.retryMax", defaultRetryMax)
}

// buildConfig transforms the intermediate Definition into a final Config,
// applying duration parsing, defaults, and validations.
func (l *Loader) buildConfig(def Definition) (*Config, error) {
	var cfg Config

	cfg.Global = Global{
		Debug:     def.Debug,
		LogFormat: def.LogFormat,
	}

	cfg.Server = Server{
		Host:     def.Host,
		Port:     def.Port,
		BasePath: normalizeBasePath(def.BasePath),
	}

	cfg.Auth = Auth{
		OIDC: AuthOIDC{
			Issuer:       def.Auth.OIDC.Issuer,
			ClientID:     def.Auth.OIDC.ClientID,
			ClientSecret: def.Auth.OIDC.ClientSecret,
			Scopes:       def.Auth.OIDC.Scopes,
			RedirectURL:  def.Auth.OIDC.RedirectURL,
		},
		TokenSecret:        def.Auth.TokenSecret,
		MaxResolveAttempts: def.Auth.MaxResolveAttempts,
	}
	if cfg.Auth.MaxResolveAttempts <= 0 {
		cfg.Auth.MaxResolveAttempts = defaultMaxResolveAttempts
	}

	timeout, err := l.parseDuration("platform.timeout", def.Platform.Timeout, defaultPlatformTimeout)
	if err != nil {
		return nil, err
	}
	cfg.Platform = Platform{
		BaseURL:    strings.TrimSuffix(def.Platform.BaseURL, "/"),
		ConsoleURL: strings.TrimSuffix(def.Platform.ConsoleURL, "/"),
		Timeout:    timeout,
		RetryMax:   def.Platform.RetryMax,
	}

	revalidate, err := l.parseDuration("gates.licenseRevalidateInterval",
		def.Gates.LicenseRevalidateInterval, defaultRevalidateInterval)
	if err != nil {
		return nil, err
	}
	demoTimeout, err := l.parseDuration("gates.demoVerifyTimeout",
		def.Gates.DemoVerifyTimeout, defaultDemoVerifyTimeout)
	if err != nil {
		return nil, err
	}
	cfg.Gates = Gates{
		LicenseRevalidateInterval: revalidate,
		DemoVerifyTimeout:         demoTimeout,
		ExemptPaths:               def.Gates.ExemptPaths,
	}
	if len(cfg.Gates.ExemptPaths) == 0 {
		cfg.Gates.ExemptPaths = DefaultExemptPaths
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (l *Loader) parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	if d <= 0 {
		l.warnings = append(l.warnings,
			fmt.Sprintf("non-positive duration for %s; using default %s", key, fallback))
		return fallback, nil
	}
	return d, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Platform.BaseURL == "" {
		return fmt.Errorf("platform.baseUrl is required")
	}
	return nil
}

func normalizeBasePath(p string) string {
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}
