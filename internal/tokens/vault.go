// Package tokens keeps the Dropbox OAuth tokens encrypted under the master
// key. Tokens obtained while the journal is locked wait in a volatile pending
// slot and are sealed on the next unlock; nothing secret is ever written to
// durable storage in plaintext.
package tokens

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PolarWolf314/diario/internal/dropbox"
	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/kv"
	logger "github.com/PolarWolf314/diario/internal/logging"
	"github.com/PolarWolf314/diario/internal/secrets"
)

// Storage slots.
const (
	SlotTokens     = "dropbox_tokens_v2"
	SlotPending    = "dropbox_tokens_pending"
	SlotProfile    = "dropbox_profile"
	SlotAppKey     = "dropbox_app_key"
	SlotLastSync   = "dropbox_last_sync"
	SlotAuthResult = "dropbox_last_auth"
	SlotOAuth      = "dropbox_oauth"
)

// Auth results recorded after a redirect or a revocation.
const (
	AuthLinked       = "linked"
	AuthDisconnected = "disconnected"
	authErrorPrefix  = "error:"
)

// TokenState is the secret provider state.
type TokenState struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	AccountID    string `json:"accountId"`
	ExpiresAt    int64  `json:"expiresAt"`
	Scope        string `json:"scope,omitempty"`
	AccountName  string `json:"accountName,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Expired reports whether the access token must be refreshed at now.
func (t TokenState) Expired(now time.Time) bool {
	return t.ExpiresAt == 0 || now.UnixMilli() >= t.ExpiresAt
}

// Profile is the non-secret hint kept in plaintext so status reads never need
// the master key.
type Profile struct {
	Linked      bool   `json:"linked"`
	AccountName string `json:"accountName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Status is what the UI shows about the connection.
type Status struct {
	Linked         bool
	PendingUnlock  bool
	AccountName    string
	Email          string
	AppKey         string
	LastSync       time.Time
	LastAuthResult string
}

type pkceState struct {
	State     string `json:"state"`
	Verifier  string `json:"verifier"`
	CreatedAt int64  `json:"createdAt"`
}

// SessionSource hands out the installed master-key session.
type SessionSource interface {
	Session() *secrets.Session
}

// Options wires a Vault.
type Options struct {
	// Durable holds the sealed tokens and the plaintext hints.
	Durable kv.Store
	// Volatile holds the pending plaintext slot.
	Volatile kv.Store
	// Transient holds the PKCE verifier and state between connect and
	// redirect.
	Transient kv.Store

	Keys   SessionSource
	Client *dropbox.Client
	Logger logger.Logger
	Now    func() time.Time
}

// Vault is the token store.
type Vault struct {
	durable   kv.Store
	volatile  kv.Store
	transient kv.Store
	keys      SessionSource
	client    *dropbox.Client
	log       logger.Logger
	now       func() time.Time

	mu sync.Mutex
}

// New builds a Vault. A nil Volatile store gets a fresh MemoryStore.
func New(opts Options) *Vault {
	if opts.Volatile == nil {
		opts.Volatile = kv.NewMemoryStore()
	}
	if opts.Transient == nil {
		opts.Transient = opts.Durable
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Vault{
		durable:   opts.Durable,
		volatile:  opts.Volatile,
		transient: opts.Transient,
		keys:      opts.Keys,
		client:    opts.Client,
		log:       opts.Logger,
		now:       opts.Now,
	}
}

// AppKey returns the stored app key, or "".
func (v *Vault) AppKey() string {
	data, err := v.durable.Get(SlotAppKey)
	if err != nil {
		return ""
	}
	return string(data)
}

// SetAppKey stores the app key; an empty key removes it.
func (v *Vault) SetAppKey(appKey string) error {
	appKey = strings.TrimSpace(appKey)
	if appKey == "" {
		return v.durable.Delete(SlotAppKey)
	}
	return v.durable.Set(SlotAppKey, []byte(appKey))
}

func (v *Vault) clientFor(appKey string) *dropbox.Client {
	return v.client.WithAppKey(appKey)
}

// Connect starts the PKCE flow and returns the authorization URL to open.
func (v *Vault) Connect(appKey string) (string, error) {
	if v.keys.Session() == nil {
		return "", kerrors.ErrNoSession
	}
	appKey = strings.TrimSpace(appKey)
	if appKey == "" {
		return "", kerrors.ErrMissingAppKey
	}
	if err := v.SetAppKey(appKey); err != nil {
		return "", fmt.Errorf("failed to store app key: %w", err)
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	pending := pkceState{
		State:     hex.EncodeToString(stateBytes),
		Verifier:  dropbox.NewVerifier(),
		CreatedAt: v.now().UnixMilli(),
	}
	if err := kv.SetJSON(v.transient, SlotOAuth, pending); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	v.log.Infof("Authorization flow started for app key %s", appKey)
	return v.clientFor(appKey).AuthorizationURL(pending.State, pending.Verifier), nil
}

// HandleRedirect accepts the pasted redirect URL (or just its query string)
// and completes the flow. The outcome is recorded for Status.
func (v *Vault) HandleRedirect(ctx context.Context, redirect string) error {
	query := strings.TrimSpace(redirect)
	if i := strings.Index(query, "?"); i >= 0 {
		query = query[i+1:]
	}
	if i := strings.Index(query, "#"); i >= 0 {
		query = query[:i]
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return fmt.Errorf("failed to parse redirect: %w", err)
	}

	code, state, oauthErr := params.Get("code"), params.Get("state"), params.Get("error")
	if code == "" && oauthErr == "" {
		return fmt.Errorf("redirect carries no authorization code")
	}

	if oauthErr != "" {
		// The state is still checked so a forged error cannot clear a flow.
		if _, err := v.takePKCE(state); err != nil {
			v.recordAuth(authErrorPrefix + "state_mismatch")
			return err
		}
		v.recordAuth(authErrorPrefix + oauthErr)
		return fmt.Errorf("%w: provider returned %s", kerrors.ErrAuthRevoked, oauthErr)
	}

	if err := v.CompleteRedirect(ctx, code, state); err != nil {
		if errors.Is(err, kerrors.ErrStateMismatch) {
			v.recordAuth(authErrorPrefix + "state_mismatch")
			return err
		}
		v.recordAuth(authErrorPrefix + err.Error())
		if clearErr := v.Save(nil); clearErr != nil {
			v.log.Warnf("Could not clear tokens after a failed exchange: %v", clearErr)
		}
		return err
	}
	return nil
}

// takePKCE loads and deletes the pending flow, checking state.
func (v *Vault) takePKCE(state string) (*pkceState, error) {
	var pending pkceState
	err := kv.GetJSON(v.transient, SlotOAuth, &pending)
	if delErr := v.transient.Delete(SlotOAuth); delErr != nil {
		v.log.Debugf("Could not delete oauth state: %v", delErr)
	}
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: no authorization in progress", kerrors.ErrStateMismatch)
	}
	if err != nil {
		return nil, err
	}
	if state == "" || subtle.ConstantTimeCompare([]byte(pending.State), []byte(state)) != 1 {
		return nil, kerrors.ErrStateMismatch
	}
	return &pending, nil
}

// CompleteRedirect validates state, exchanges the code and stores the tokens.
func (v *Vault) CompleteRedirect(ctx context.Context, code, state string) error {
	pending, err := v.takePKCE(state)
	if err != nil {
		return err
	}
	appKey := v.AppKey()
	if appKey == "" {
		return kerrors.ErrMissingAppKey
	}

	tok, err := v.clientFor(appKey).ExchangeCode(ctx, code, pending.Verifier)
	if err != nil {
		return err
	}
	ts := TokenState{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		AccountID:    tok.AccountID,
		ExpiresAt:    tok.ExpiresAt.UnixMilli(),
		Scope:        tok.Scope,
	}
	if err := v.Save(&ts); err != nil {
		return err
	}
	v.hydrate(ctx)
	v.recordAuth(AuthLinked)
	return nil
}

// Save persists ts: sealed when a session is installed, otherwise in the
// volatile pending slot. A nil ts clears every token slot.
func (v *Vault) Save(ts *TokenState) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ts == nil {
		return v.clearLocked()
	}
	if s := v.keys.Session(); s != nil {
		err := v.sealLocked(s, *ts)
		if !errors.Is(err, kerrors.ErrNoSession) {
			return err
		}
	}
	v.log.Debugf("Journal locked, holding tokens until unlock")
	return kv.SetJSON(v.volatile, SlotPending, ts)
}

// sealLocked encrypts ts with s and writes the durable slot and hint.
func (v *Vault) sealLocked(s *secrets.Session, ts TokenState) error {
	plain, err := json.Marshal(ts)
	if err != nil {
		return err
	}
	sealed, err := s.EncryptString(string(plain))
	if err != nil {
		return err
	}
	if err := v.durable.Set(SlotTokens, []byte(sealed)); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}
	if err := v.volatile.Delete(SlotPending); err != nil {
		return err
	}
	return kv.SetJSON(v.durable, SlotProfile, Profile{Linked: true, AccountName: ts.AccountName, Email: ts.Email})
}

func (v *Vault) clearLocked() error {
	var errs []error
	for _, slot := range []string{SlotTokens, SlotProfile} {
		if err := v.durable.Delete(slot); err != nil {
			errs = append(errs, err)
		}
	}
	if err := v.volatile.Delete(SlotPending); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// load decrypts the durable slot with s, migrating a pending slot first.
func (v *Vault) load(s *secrets.Session) (*TokenState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.migrateLocked(s); err != nil {
		return nil, err
	}
	sealed, err := v.durable.Get(SlotTokens)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, kerrors.ErrNotLinked
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}
	plain, err := s.DecryptString(string(sealed))
	if err != nil {
		return nil, err
	}
	var ts TokenState
	if err := json.Unmarshal([]byte(plain), &ts); err != nil {
		return nil, fmt.Errorf("%w: stored tokens are corrupt: %v", kerrors.ErrDecryptionFailed, err)
	}
	return &ts, nil
}

// migrateLocked seals a pending slot with s. If s is revoked nothing is
// written.
func (v *Vault) migrateLocked(s *secrets.Session) error {
	var pending TokenState
	err := kv.GetJSON(v.volatile, SlotPending, &pending)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := v.sealLocked(s, pending); err != nil {
		return fmt.Errorf("failed to seal pending tokens: %w", err)
	}
	v.log.Infof("Pending tokens sealed under the master key")
	return nil
}

// Current decrypts the stored tokens with the installed session. Callers
// that are about to change the master key use it to carry tokens across.
func (v *Vault) Current() (*TokenState, error) {
	s := v.keys.Session()
	if s == nil {
		return nil, kerrors.ErrNoSession
	}
	return v.load(s)
}

// OnSessionUnlocked seals any pending tokens with the session installed at
// entry, then refreshes the account profile if it is incomplete.
func (v *Vault) OnSessionUnlocked(ctx context.Context) error {
	s := v.keys.Session()
	if s == nil {
		return kerrors.ErrNoSession
	}
	v.mu.Lock()
	err := v.migrateLocked(s)
	v.mu.Unlock()
	if err != nil {
		return err
	}

	var p Profile
	if err := kv.GetJSON(v.durable, SlotProfile, &p); err == nil && p.Linked && (p.AccountName == "" || p.Email == "") {
		v.hydrate(ctx)
	}
	return nil
}

// EnsureAccessToken returns a usable access token, refreshing it when
// expired. A rejected refresh clears the vault.
func (v *Vault) EnsureAccessToken(ctx context.Context) (string, error) {
	s := v.keys.Session()
	if s == nil {
		return "", kerrors.ErrNoSession
	}
	ts, err := v.load(s)
	if err != nil {
		return "", err
	}
	if !ts.Expired(v.now()) {
		return ts.AccessToken, nil
	}

	v.log.Debugf("Access token expired, refreshing")
	appKey := v.AppKey()
	if appKey == "" {
		return "", kerrors.ErrMissingAppKey
	}
	tok, err := v.clientFor(appKey).Refresh(ctx, ts.RefreshToken)
	if err != nil {
		if errors.Is(err, kerrors.ErrAuthRevoked) {
			v.revoke()
		}
		return "", err
	}

	ts.AccessToken = tok.AccessToken
	ts.ExpiresAt = tok.ExpiresAt.UnixMilli()
	if tok.RefreshToken != "" {
		ts.RefreshToken = tok.RefreshToken
	}
	v.mu.Lock()
	err = v.sealLocked(s, *ts)
	v.mu.Unlock()
	if err != nil {
		return "", err
	}
	return ts.AccessToken, nil
}

// Call runs fn with a fresh access token. An ErrAuthRevoked from fn clears
// the vault.
func (v *Vault) Call(ctx context.Context, fn func(ctx context.Context, client *dropbox.Client, accessToken string) error) error {
	token, err := v.EnsureAccessToken(ctx)
	if err != nil {
		return err
	}
	err = fn(ctx, v.clientFor(v.AppKey()), token)
	if errors.Is(err, kerrors.ErrAuthRevoked) {
		v.revoke()
	}
	return err
}

// revoke clears the tokens after the provider rejected them.
func (v *Vault) revoke() {
	v.log.Warnf("Dropbox rejected the stored authorization, disconnecting")
	if err := v.Save(nil); err != nil {
		v.log.Warnf("Could not clear tokens: %v", err)
	}
	v.recordAuth(authErrorPrefix + "auth_failure")
}

// hydrate fills the account name and email. Failures are logged only.
func (v *Vault) hydrate(ctx context.Context) {
	s := v.keys.Session()
	if s == nil {
		return
	}
	var acct *dropbox.Account
	err := v.Call(ctx, func(ctx context.Context, c *dropbox.Client, token string) error {
		var err error
		acct, err = c.AccountInfo(ctx, token)
		return err
	})
	if err != nil {
		v.log.Warnf("Could not fetch Dropbox account: %v", err)
		return
	}

	ts, err := v.load(s)
	if err != nil {
		return
	}
	ts.AccountName = acct.Name
	ts.Email = acct.Email
	if ts.AccountID == "" {
		ts.AccountID = acct.AccountID
	}
	v.mu.Lock()
	if err := v.sealLocked(s, *ts); err != nil {
		v.log.Warnf("Could not store Dropbox account: %v", err)
	}
	v.mu.Unlock()
}

// Status reports the connection without needing a session.
func (v *Vault) Status() Status {
	st := Status{AppKey: v.AppKey()}

	var p Profile
	if err := kv.GetJSON(v.durable, SlotProfile, &p); err == nil {
		st.Linked = p.Linked
		st.AccountName = p.AccountName
		st.Email = p.Email
	}
	if ok, _ := kv.Has(v.durable, SlotTokens); ok {
		st.Linked = true
	}
	if ok, _ := kv.Has(v.volatile, SlotPending); ok {
		st.Linked = true
		st.PendingUnlock = true
	}
	if data, err := v.durable.Get(SlotLastSync); err == nil {
		if ms, err := strconv.ParseInt(string(data), 10, 64); err == nil && ms > 0 {
			st.LastSync = time.UnixMilli(ms)
		}
	}
	if data, err := v.durable.Get(SlotAuthResult); err == nil {
		st.LastAuthResult = string(data)
	}
	return st
}

// IsLinked reports whether tokens are held in either slot.
func (v *Vault) IsLinked() bool {
	return v.Status().Linked
}

// MarkSynced records a successful sync.
func (v *Vault) MarkSynced(t time.Time) error {
	return v.durable.Set(SlotLastSync, []byte(strconv.FormatInt(t.UnixMilli(), 10)))
}

// ClearAuthResult forgets the last auth outcome once it has been shown.
func (v *Vault) ClearAuthResult() error {
	return v.durable.Delete(SlotAuthResult)
}

// Disconnect forgets tokens, the sync marker and any flow in progress.
func (v *Vault) Disconnect() error {
	v.mu.Lock()
	err := v.clearLocked()
	v.mu.Unlock()

	err = errors.Join(err,
		v.durable.Delete(SlotLastSync),
		v.transient.Delete(SlotOAuth),
	)
	v.recordAuth(AuthDisconnected)
	return err
}

func (v *Vault) recordAuth(result string) {
	if err := v.durable.Set(SlotAuthResult, []byte(result)); err != nil {
		v.log.Debugf("Could not record auth result: %v", err)
	}
}
