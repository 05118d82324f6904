package config

// Definition is the raw configuration structure unmarshalled from the
// config file and environment before validation and defaulting.
type Definition struct {
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"logFormat"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	BasePath string `mapstructure:"basePath"`

	Auth     authDef     `mapstructure:"auth"`
	Platform platformDef `mapstructure:"platform"`
	Gates    gatesDef    `mapstructure:"gates"`
}

type authDef struct {
	OIDC               oidcDef `mapstructure:"oidc"`
	TokenSecret        string  `mapstructure:"tokenSecret"`
	MaxResolveAttempts int     `mapstructure:"maxResolveAttempts"`
}

type oidcDef struct {
	Issuer       string   `mapstructure:"issuer"`
	ClientID     string   `mapstructure:"clientId"`
	ClientSecret string   `mapstructure:"clientSecret"`
	Scopes       []string `mapstructure:"scopes"`
	RedirectURL  string   `mapstructure:"redirectUrl"`
}

type platformDef struct {
	BaseURL    string `mapstructure:"baseUrl"`
	ConsoleURL string `mapstructure:"consoleUrl"`
	Timeout    string `mapstructure:"timeout"`
	RetryMax   int    `mapstructure:"retryMax"`
}

type gatesDef struct {
	LicenseRevalidateInterval string   `mapstructure:"licenseRevalidateInterval"`
	DemoVerifyTimeout         string   `mapstructure:"demoVerifyTimeout"`
	ExemptPaths               []string `mapstructure:"exemptPaths"`
}
