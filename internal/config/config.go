package config

import (
	"time"
)

// Config holds the overall configuration for the gateway.
type Config struct {
	// Global contains global configuration settings.
	Global Global

	// Server contains the HTTP server configuration.
	Server Server

	// Auth contains identity provider and token settings.
	Auth Auth

	// Platform contains the upstream EVO Platform RPC configuration.
	Platform Platform

	// Gates contains tuning for the navigation gates.
	Gates Gates

	// Warnings contains a list of warnings generated during the
	// configuration loading process.
	Warnings []string
}

type Global struct {
	// Debug toggles debug mode; when true, the application outputs extra logs.
	Debug bool

	// LogFormat defines the output format for log messages (text or json).
	LogFormat string

	// ConfigPath is the path of the configuration file actually loaded.
	ConfigPath string
}

// Server contains the HTTP server configuration.
type Server struct {
	// Host defines the hostname or IP address on which the gateway listens.
	Host string

	// Port specifies the network port for incoming connections.
	Port int

	// BasePath is the root URL path from which the gateway is served.
	// Useful when hosting behind a reverse proxy under a subpath.
	BasePath string
}

// Auth contains identity provider and token settings.
type Auth struct {
	// OIDC configures verification of ID tokens issued by the identity
	// provider (Cognito user pool in production).
	OIDC AuthOIDC

	// TokenSecret is the HMAC secret for gateway-issued session tokens.
	TokenSecret string

	// MaxResolveAttempts bounds session resolution retries. Exceeding it
	// fails closed to the sign-in screen instead of looping.
	MaxResolveAttempts int
}

// AuthOIDC holds the OIDC verifier configuration.
type AuthOIDC struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// RedirectURL is the externally reachable callback URL registered with
	// the identity provider. Required to enable the sign-in flow.
	RedirectURL string
}

// Platform contains the upstream EVO Platform RPC configuration.
type Platform struct {
	// BaseURL is the API gateway origin fronting the Lambda fleet.
	BaseURL string

	// ConsoleURL is the origin of the console application that allowed
	// requests are proxied to.
	ConsoleURL string

	// Timeout is the per-request timeout for RPC calls.
	Timeout time.Duration

	// RetryMax bounds retries of transient RPC failures.
	RetryMax int
}

// Gates contains tuning for the navigation gates.
type Gates struct {
	// LicenseRevalidateInterval is how long a cached license status is
	// served before a background revalidation is triggered.
	LicenseRevalidateInterval time.Duration

	// DemoVerifyTimeout bounds the demo-mode verification call. On expiry
	// the gate fails open as "not demo".
	DemoVerifyTimeout time.Duration

	// ExemptPaths are path prefixes never gated on cloud accounts.
	ExemptPaths []string
}

// DefaultExemptPaths are the routes exempt from the cloud-account gate:
// auth screens, settings, legal pages, the license screen, and the
// account-connection screen itself.
var DefaultExemptPaths = []string{
	"/auth",
	"/settings",
	"/legal",
	"/license-management",
	"/cloud-credentials",
}

const (
	defaultHost                = "127.0.0.1"
	defaultPort                = 8090
	defaultPlatformTimeout     = 30 * time.Second
	defaultRetryMax            = 3
	defaultRevalidateInterval  = 5 * time.Minute
	defaultDemoVerifyTimeout   = 10 * time.Second
	defaultMaxResolveAttempts  = 3
)
