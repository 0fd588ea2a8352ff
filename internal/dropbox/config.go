// Package dropbox is a narrow client for the Dropbox endpoints diario uses:
// the PKCE authorization-code flow, account info, and upload, listing and
// download of backup files.
//
// Every call maps HTTP 400 and 401 to ErrAuthRevoked and any other failure to
// ErrTransport. Nothing is retried.
package dropbox

import (
	"net/http"
	"time"
)

// Default Dropbox endpoints.
const (
	DefaultAuthURL    = "https://www.dropbox.com/oauth2/authorize"
	DefaultTokenURL   = "https://api.dropboxapi.com/oauth2/token"
	DefaultAPIURL     = "https://api.dropboxapi.com"
	DefaultContentURL = "https://content.dropboxapi.com"
	DefaultFolder     = "/Diario"
	DefaultPattern    = "*.json"
)

// DefaultScopes are requested on every authorization.
var DefaultScopes = []string{"files.content.write", "files.content.read", "account_info.read"}

// Config describes the Dropbox app and endpoints.
type Config struct {
	AppKey      string
	RedirectURI string
	Scopes      []string

	AuthURL    string
	TokenURL   string
	APIURL     string
	ContentURL string

	// Folder is where backups live, e.g. "/Diario".
	Folder string

	// BackupPattern filters listed files by lowercased base name. The
	// default keeps every .json file.
	BackupPattern string

	HTTPClient *http.Client
	Now        func() time.Time
}

func (c Config) withDefaults() Config {
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.ContentURL == "" {
		c.ContentURL = DefaultContentURL
	}
	if c.Folder == "" {
		c.Folder = DefaultFolder
	}
	if c.BackupPattern == "" {
		c.BackupPattern = DefaultPattern
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
