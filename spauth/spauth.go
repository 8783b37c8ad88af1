package spauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/auth/addin"
	"github.com/koltyakov/gosip/auth/azurecert"
	"github.com/koltyakov/gosip/auth/saml"
	"golang.org/x/oauth2"

	"spconnect/infrastructure/session"
)

// Supported authentication types.
const (
	AuthOAuth       = "oauth"       // pre-issued bearer access token
	AuthLogin       = "login"       // username/password (SAML)
	AuthCertificate = "certificate" // Azure AD app with certificate
	AuthAddin       = "addin"       // SharePoint add-in client id/secret (ACS)
)

// Config describes a SharePoint Online site and how to authenticate against it.
type Config struct {
	AuthType string `yaml:"auth_type"`

	Tenant   string `yaml:"tenant"`    // "contoso" for contoso.sharepoint.com
	SiteType string `yaml:"site_type"` // "sites" or "teams"
	Site     string `yaml:"site"`
	Root     string `yaml:"root"` // document library root folder

	AccessToken string `yaml:"-"`

	Username string `yaml:"username"`
	Password string `yaml:"-"`

	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"-"`
	CertPath     string `yaml:"cert_path"`
	CertPassword string `yaml:"-"`
}

// FromEnv reads the SharePoint configuration from SP_* environment variables.
func FromEnv() (Config, error) {
	// Environment should already be loaded by main.go
	cfg := Config{
		AuthType:     os.Getenv("SP_AUTH_TYPE"),
		Tenant:       os.Getenv("SP_TENANT"),
		SiteType:     os.Getenv("SP_SITE_TYPE"),
		Site:         os.Getenv("SP_SITE"),
		Root:         os.Getenv("SP_ROOT"),
		AccessToken:  os.Getenv("SP_ACCESS_TOKEN"),
		Username:     os.Getenv("SP_USERNAME"),
		Password:     os.Getenv("SP_PASSWORD"),
		TenantID:     os.Getenv("SP_TENANT_ID"),
		ClientID:     os.Getenv("SP_CLIENT_ID"),
		ClientSecret: os.Getenv("SP_CLIENT_SECRET"),
		CertPath:     os.Getenv("SP_CERT_PATH"),
		CertPassword: os.Getenv("SP_CERT_PASSWORD"),
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// ApplyDefaults fills the optional addressing fields.
func (c *Config) ApplyDefaults() {
	if c.AuthType == "" {
		c.AuthType = AuthOAuth
	}
	if c.SiteType == "" {
		c.SiteType = "sites"
	}
	if c.Root == "" {
		c.Root = "Shared Documents"
	}
	c.Root = strings.Trim(c.Root, "/")
	c.Site = strings.Trim(c.Site, "/")
}

// Validate reports the first missing login detail for the selected auth type.
func (c Config) Validate() error {
	if c.Tenant == "" {
		return errors.New("the tenant name is missing")
	}
	if c.Site == "" {
		return errors.New("the site name is missing")
	}
	switch c.AuthType {
	case AuthOAuth:
		if c.AccessToken == "" {
			return errors.New("the access token is missing")
		}
	case AuthLogin:
		if c.Username == "" {
			return errors.New("the account's username is missing")
		}
		if c.Password == "" {
			return errors.New("the account's password is missing")
		}
	case AuthCertificate:
		if c.TenantID == "" || c.ClientID == "" || c.CertPath == "" {
			return errors.New("certificate authentication requires tenant id, client id and certificate path")
		}
	case AuthAddin:
		if c.ClientID == "" || c.ClientSecret == "" {
			return errors.New("add-in authentication requires client id and client secret")
		}
	default:
		return fmt.Errorf("the type of authentication is not selected (got %q)", c.AuthType)
	}
	return nil
}

// Origin returns https://{tenant}.sharepoint.com
func (c Config) Origin() string {
	return "https://" + c.Tenant + ".sharepoint.com"
}

// SiteURL returns the absolute URL of the site.
func (c Config) SiteURL() string {
	return c.Origin() + "/" + c.SiteType + "/" + c.Site
}

// NewConnector returns the session.ConnectFunc for the configured auth type.
// Each call builds a fresh client so a session reset drops cached connections.
func NewConnector(cfg Config) (session.ConnectFunc, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.AuthType {
	case AuthOAuth:
		return func(ctx context.Context) (session.Transport, error) {
			src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
			return oauth2.NewClient(context.Background(), src), nil
		}, nil
	case AuthLogin:
		return gosipConnector(&saml.AuthCnfg{
			SiteURL:  cfg.SiteURL(),
			Username: cfg.Username,
			Password: cfg.Password,
		}), nil
	case AuthCertificate:
		return gosipConnector(&azurecert.AuthCnfg{
			SiteURL:  cfg.SiteURL(),
			TenantID: cfg.TenantID,
			ClientID: cfg.ClientID,
			CertPath: cfg.CertPath,
			CertPass: cfg.CertPassword,
		}), nil
	case AuthAddin:
		return gosipConnector(&addin.AuthCnfg{
			SiteURL:      cfg.SiteURL(),
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Realm:        cfg.TenantID,
		}), nil
	}
	return nil, fmt.Errorf("unsupported auth type %q", cfg.AuthType)
}

// gosipTransport adapts a gosip client to session.Transport.
type gosipTransport struct {
	client *gosip.SPClient
}

// Do returns error statuses as responses. gosip reports them as *gosip.SPError
// alongside the response, and RobustSession decides on retries from the status.
func (t *gosipTransport) Do(req *http.Request) (*http.Response, error) {
	resp, err := t.client.Execute(req)
	var spErr *gosip.SPError
	if err != nil && resp != nil && errors.As(err, &spErr) {
		return resp, nil
	}
	return resp, err
}

func (t *gosipTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

// NoRetryPolicies disables gosip's own status retries; throttling is handled by RobustSession.
// 401 keeps gosip's default so expired tokens are renewed by the auth strategy.
func NoRetryPolicies() map[int]int {
	return map[int]int{
		http.StatusTooManyRequests:     0,
		http.StatusInternalServerError: 0,
		http.StatusServiceUnavailable:  0,
		http.StatusGatewayTimeout:      0,
	}
}

func gosipConnector(auth gosip.AuthCnfg) session.ConnectFunc {
	return func(ctx context.Context) (session.Transport, error) {
		client := &gosip.SPClient{
			AuthCnfg:      auth,
			RetryPolicies: NoRetryPolicies(),
		}
		if _, _, err := auth.GetAuth(); err != nil {
			return nil, fmt.Errorf("authenticate %s: %w", auth.GetStrategy(), err)
		}
		return &gosipTransport{client: client}, nil
	}
}
