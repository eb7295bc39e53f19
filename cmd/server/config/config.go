package config

import (
	"fmt"
	"time"
)

// BaseConfig is the application configuration root. Values load from config
// files and the environment through the config container in main.
type BaseConfig struct {
	Name        string       `json:"name" yaml:"name"`
	Env         string       `json:"env" yaml:"env"`
	Debug       bool         `json:"debug" yaml:"debug"`
	Server      *Server      `json:"server" yaml:"server"`
	Auth        *Auth        `json:"auth" yaml:"auth"`
	Persistence *Persistence `json:"persistence" yaml:"persistence"`
	Mailer      *Mailer      `json:"mailer" yaml:"mailer"`
}

func (a *BaseConfig) Validate() error {
	if a.Auth == nil {
		return fmt.Errorf("config: missing auth section")
	}
	if a.Auth.SigningKey == "" {
		return fmt.Errorf("config: auth.signing_key is required")
	}
	if a.Persistence == nil {
		return fmt.Errorf("config: missing persistence section")
	}
	return nil
}

func (a *BaseConfig) GetName() string {
	if a.Name == "" {
		return "users"
	}
	return a.Name
}

func (a *BaseConfig) GetEnv() string {
	if a.Env == "" {
		return "development"
	}
	return a.Env
}

func (a *BaseConfig) GetDebug() bool { return a.Debug }

func (a *BaseConfig) GetServer() *Server {
	if a.Server == nil {
		a.Server = &Server{}
	}
	return a.Server
}

func (a *BaseConfig) GetAuth() *Auth {
	if a.Auth == nil {
		a.Auth = &Auth{}
	}
	return a.Auth
}

func (a *BaseConfig) GetPersistence() *Persistence {
	if a.Persistence == nil {
		a.Persistence = &Persistence{}
	}
	return a.Persistence
}

func (a *BaseConfig) GetMailer() *Mailer {
	if a.Mailer == nil {
		a.Mailer = &Mailer{}
	}
	return a.Mailer
}

// Server holds the HTTP listener options.
type Server struct {
	Addr string `json:"addr" yaml:"addr"`
}

func (s *Server) GetAddr() string {
	if s.Addr == "" {
		return ":8000"
	}
	return s.Addr
}

// Auth satisfies the auth library's Config interface.
type Auth struct {
	SigningKey      string   `json:"signing_key" yaml:"signing_key"`
	SigningMethod   string   `json:"signing_method" yaml:"signing_method"`
	ContextKey      string   `json:"context_key" yaml:"context_key"`
	TokenExpiration int      `json:"token_expiration" yaml:"token_expiration"`
	TokenLookup     string   `json:"token_lookup" yaml:"token_lookup"`
	AuthScheme      string   `json:"auth_scheme" yaml:"auth_scheme"`
	Issuer          string   `json:"issuer" yaml:"issuer"`
	Audience        []string `json:"audience" yaml:"audience"`
	JWKSEndpoint    string   `json:"jwks_endpoint" yaml:"jwks_endpoint"`
	JWKSIssuer      string   `json:"jwks_issuer" yaml:"jwks_issuer"`
}

func (a *Auth) GetSigningKey() string { return a.SigningKey }

func (a *Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a *Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "access_token"
	}
	return a.ContextKey
}

// GetTokenExpiration is expressed in minutes.
func (a *Auth) GetTokenExpiration() int {
	if a.TokenExpiration == 0 {
		return 60 * 24
	}
	return a.TokenExpiration
}

func (a *Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "header:Authorization,cookie:access_token"
	}
	return a.TokenLookup
}

func (a *Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a *Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "users"
	}
	return a.Issuer
}

func (a *Auth) GetAudience() []string {
	if len(a.Audience) == 0 {
		return []string{"users"}
	}
	return a.Audience
}

// GetJWKSEndpoint returns the key-set URL for externally issued tokens.
// Empty disables the remote validator.
func (a *Auth) GetJWKSEndpoint() string { return a.JWKSEndpoint }

func (a *Auth) GetJWKSIssuer() string { return a.JWKSIssuer }

// Persistence holds database options for the persistence client.
type Persistence struct {
	Driver                string `json:"driver" yaml:"driver"`
	DSN                   string `json:"dsn" yaml:"dsn"`
	Debug                 bool   `json:"debug" yaml:"debug"`
	Seed                  bool   `json:"seed" yaml:"seed"`
	PingTimeoutExpression string `json:"ping_timeout" yaml:"ping_timeout"`
}

func (p *Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p *Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p *Persistence) GetServer() string { return p.GetDSN() }

func (p *Persistence) GetOtelIdentifier() string { return "" }

func (p *Persistence) GetDebug() bool { return p.Debug }

func (p *Persistence) GetSeed() bool { return p.Seed }

func (p *Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

// Mailer holds outbound notification options. With Enabled false the service
// logs notifications instead of delivering them.
type Mailer struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	From    string `json:"from" yaml:"from"`
	Host    string `json:"host" yaml:"host"`
	Port    int    `json:"port" yaml:"port"`
}

func (m *Mailer) GetEnabled() bool { return m.Enabled }

func (m *Mailer) GetFrom() string {
	if m.From == "" {
		return "no-reply@example.com"
	}
	return m.From
}

func (m *Mailer) GetHost() string { return m.Host }

func (m *Mailer) GetPort() int {
	if m.Port == 0 {
		return 587
	}
	return m.Port
}
