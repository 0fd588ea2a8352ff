package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	logger "github.com/PolarWolf314/diario/internal/logging"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Client talks to Dropbox on behalf of one app key.
type Client struct {
	cfg Config
	log logger.Logger
}

// NewClient builds a client; zero Config fields take Dropbox defaults.
func NewClient(cfg Config, log logger.Logger) *Client {
	return &Client{cfg: cfg.withDefaults(), log: log}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// WithAppKey returns a copy of the client bound to another app key.
func (c *Client) WithAppKey(appKey string) *Client {
	cfg := c.cfg
	cfg.AppKey = appKey
	return &Client{cfg: cfg, log: c.log}
}

// Account is the subset of users/get_current_account that is kept.
type Account struct {
	AccountID string
	Name      string
	Email     string
}

// Metadata describes a file in the backup folder.
type Metadata struct {
	Tag            string    `json:".tag"`
	Name           string    `json:"name"`
	PathLower      string    `json:"path_lower"`
	PathDisplay    string    `json:"path_display"`
	ID             string    `json:"id"`
	Rev            string    `json:"rev"`
	Size           int64     `json:"size"`
	ServerModified time.Time `json:"server_modified"`
	ClientModified time.Time `json:"client_modified"`
}

// Modified prefers the server timestamp.
func (m Metadata) Modified() time.Time {
	if !m.ServerModified.IsZero() {
		return m.ServerModified
	}
	return m.ClientModified
}

// PathFor joins a file name onto the backup folder.
func (c *Client) PathFor(name string) string {
	return path.Join(c.cfg.Folder, name)
}

// StatusError is a non-2xx response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dropbox: %s: HTTP %d: %s", e.Op, e.Status, e.Body)
}

// Unwrap maps the status onto the provider error taxonomy.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusBadRequest || e.Status == http.StatusUnauthorized {
		return kerrors.ErrAuthRevoked
	}
	return kerrors.ErrTransport
}

func (c *Client) do(ctx context.Context, op string, req *http.Request, accessToken string) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	c.log.Debugf("dropbox: %s %s", req.Method, req.URL.Path)

	resp, err := c.cfg.HTTPClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrTransport, op, err)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// rpc POSTs a JSON body to an API endpoint and decodes the JSON reply into out.
func (c *Client) rpc(ctx context.Context, op, accessToken, endpoint string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("dropbox: %s: encode request: %w", op, err)
	}
	req, err := http.NewRequest(http.MethodPost, c.cfg.APIURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("dropbox: %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, op, req, accessToken)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, statusError(op, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: %s: decode response: %v", kerrors.ErrTransport, op, err)
		}
	}
	return resp.StatusCode, nil
}

// AccountInfo fetches the connected account's name and email.
func (c *Client) AccountInfo(ctx context.Context, accessToken string) (*Account, error) {
	var raw struct {
		AccountID string `json:"account_id"`
		Name      struct {
			DisplayName string `json:"display_name"`
		} `json:"name"`
		Email string `json:"email"`
	}
	if _, err := c.rpc(ctx, "get account", accessToken, "/2/users/get_current_account", nil, &raw); err != nil {
		return nil, err
	}
	return &Account{AccountID: raw.AccountID, Name: raw.Name.DisplayName, Email: raw.Email}, nil
}

// Upload writes data to path, overwriting any existing file.
func (c *Client) Upload(ctx context.Context, accessToken, filePath string, data []byte) (*Metadata, error) {
	arg, err := json.Marshal(map[string]any{
		"path":       filePath,
		"mode":       "overwrite",
		"autorename": false,
		"mute":       true,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.cfg.ContentURL+"/2/files/upload", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("dropbox: upload: %w", err)
	}
	req.Header.Set("Dropbox-API-Arg", string(arg))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(ctx, "upload", req, accessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("upload", resp)
	}
	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: upload: decode response: %v", kerrors.ErrTransport, err)
	}
	return &meta, nil
}

type listFolderResult struct {
	Entries []Metadata `json:"entries"`
	Cursor  string     `json:"cursor"`
	HasMore bool       `json:"has_more"`
}

// ListFolder returns the backup files under folder, newest first. A missing
// folder yields an empty list.
func (c *Client) ListFolder(ctx context.Context, accessToken, folder string) ([]Metadata, error) {
	var (
		all      []Metadata
		endpoint = "/2/files/list_folder"
		payload  any
	)
	payload = map[string]any{
		"path":               folder,
		"recursive":          false,
		"include_deleted":    false,
		"include_media_info": false,
	}

	for {
		var page listFolderResult
		status, err := c.rpc(ctx, "list folder", accessToken, endpoint, payload, &page)
		if status == http.StatusConflict {
			c.log.Debugf("dropbox: folder %s not found, no backups yet", folder)
			return []Metadata{}, nil
		}
		if err != nil {
			return nil, err
		}
		all = append(all, page.Entries...)
		if !page.HasMore {
			break
		}
		endpoint = "/2/files/list_folder/continue"
		payload = map[string]string{"cursor": page.Cursor}
	}

	out := make([]Metadata, 0, len(all))
	for _, m := range all {
		if m.Tag != "file" {
			continue
		}
		if ok, _ := doublestar.Match(c.cfg.BackupPattern, strings.ToLower(m.Name)); !ok {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Modified().After(out[j].Modified())
	})
	return out, nil
}

// Download returns the content of the file at filePath.
func (c *Client) Download(ctx context.Context, accessToken, filePath string) ([]byte, error) {
	arg, err := json.Marshal(map[string]string{"path": filePath})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.cfg.ContentURL+"/2/files/download", nil)
	if err != nil {
		return nil, fmt.Errorf("dropbox: download: %w", err)
	}
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := c.do(ctx, "download", req, accessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("download", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", kerrors.ErrTransport, err)
	}
	return data, nil
}
