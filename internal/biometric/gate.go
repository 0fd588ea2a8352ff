package biometric

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/kv"
	logger "github.com/PolarWolf314/diario/internal/logging"
)

// Durable slots.
const (
	SlotMeta  = "bio_meta"
	SlotVault = "bio_vault"
)

// State of the enrollment.
type State int

const (
	Unregistered State = iota
	Enrolling
	Enrolled
)

func (s State) String() string {
	switch s {
	case Enrolling:
		return "enrolling"
	case Enrolled:
		return "enrolled"
	default:
		return "unregistered"
	}
}

// Credential is the public record of an enrolled authenticator.
type Credential struct {
	CredentialID string   `json:"credentialId"`
	PublicKey    JWK      `json:"publicKey"`
	Alg          int      `json:"alg"`
	RPID         string   `json:"rpId"`
	Transports   []string `json:"transports"`
	UserID       string   `json:"userId"`
	CreatedAt    string   `json:"createdAt"`
}

// Config identifies the relying party the gate acts for.
type Config struct {
	RPID    string
	RPName  string
	Origin  string
	Timeout time.Duration
	Now     func() time.Time
	Logger  logger.Logger
}

// Gate is the biometric unlock state machine.
type Gate struct {
	store kv.Store
	auth  Authenticator
	cfg   Config
	log   logger.Logger

	mu        sync.Mutex
	enrolling bool
}

// NewGate builds a gate over store and auth.
func NewGate(store kv.Store, auth Authenticator, cfg Config) *Gate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RPName == "" {
		cfg.RPName = "Diario"
	}
	return &Gate{store: store, auth: auth, cfg: cfg, log: cfg.Logger}
}

func (g *Gate) loadMeta() (*Credential, error) {
	var c Credential
	if err := kv.GetJSON(g.store, SlotMeta, &c); err != nil {
		return nil, err
	}
	if c.CredentialID == "" || c.PublicKey.Kty == "" {
		return nil, fmt.Errorf("credential record is incomplete")
	}
	return &c, nil
}

func (g *Gate) loadVault() (*Vault, error) {
	var v Vault
	if err := kv.GetJSON(g.store, SlotVault, &v); err != nil {
		return nil, err
	}
	if v.IV == "" || v.CT == "" {
		return nil, fmt.Errorf("vault record is incomplete")
	}
	return &v, nil
}

// State reports Enrolled only when both records parse.
func (g *Gate) State() State {
	g.mu.Lock()
	enrolling := g.enrolling
	g.mu.Unlock()
	if enrolling {
		return Enrolling
	}
	if _, err := g.loadMeta(); err != nil {
		return Unregistered
	}
	if _, err := g.loadVault(); err != nil {
		return Unregistered
	}
	return Enrolled
}

// Credential returns the enrolled credential, or ErrBiometricNotEnrolled.
func (g *Gate) Credential() (*Credential, error) {
	if g.State() != Enrolled {
		return nil, kerrors.ErrBiometricNotEnrolled
	}
	return g.loadMeta()
}

// Available reports whether the authenticator can be used.
func (g *Gate) Available(ctx context.Context) bool {
	ok, err := g.auth.Available(ctx)
	if err != nil {
		g.log.Debugf("Authenticator availability check failed: %v", err)
		return false
	}
	return ok
}

// Enable registers a credential and seals password in the vault.
func (g *Gate) Enable(ctx context.Context, password string) error {
	if password == "" {
		return fmt.Errorf("%w: a password is required to enable biometric unlock", kerrors.ErrWeakSecret)
	}
	if !g.Available(ctx) {
		return kerrors.ErrBiometricUnsupported
	}

	g.mu.Lock()
	if g.enrolling {
		g.mu.Unlock()
		return kerrors.ErrBiometricBusy
	}
	g.enrolling = true
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.enrolling = false
		g.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	challenge, err := randomBytes(32)
	if err != nil {
		return err
	}
	userID, err := randomBytes(32)
	if err != nil {
		return err
	}

	cred, err := g.auth.CreateCredential(ctx, CreationOptions{
		Challenge:        challenge,
		RPID:             g.cfg.RPID,
		RPName:           g.cfg.RPName,
		UserID:           userID,
		UserName:         "diario-user",
		UserDisplayName:  g.cfg.RPName,
		Algorithms:       []int{AlgES256, AlgRS256},
		Attachment:       "platform",
		UserVerification: "required",
		ResidentKey:      "preferred",
		Attestation:      "none",
		Timeout:          g.cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	jwk, err := JWKFromSPKI(cred.PublicKey, cred.Algorithm)
	if err != nil {
		return err
	}

	now := g.cfg.Now()
	meta := Credential{
		CredentialID: b64url.EncodeToString(cred.RawID),
		PublicKey:    jwk,
		Alg:          cred.Algorithm,
		RPID:         g.cfg.RPID,
		Transports:   cred.Transports,
		UserID:       b64url.EncodeToString(userID),
		CreatedAt:    now.UTC().Format(time.RFC3339),
	}

	userHandle, err := g.assert(ctx, &meta)
	if err != nil {
		return err
	}
	vault, err := sealVault(password, userHandle, now)
	if err != nil {
		return err
	}

	if err := kv.SetJSON(g.store, SlotMeta, meta); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}
	if err := kv.SetJSON(g.store, SlotVault, vault); err != nil {
		if delErr := g.store.Delete(SlotMeta); delErr != nil {
			g.log.Warnf("Could not roll back biometric credential: %v", delErr)
		}
		return fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}

	g.log.Infof("Biometric unlock enabled with algorithm %d", cred.Algorithm)
	return nil
}

// Unlock requests a verified assertion and returns the sealed password.
func (g *Gate) Unlock(ctx context.Context) (string, error) {
	meta, err := g.loadMeta()
	if err != nil {
		return "", kerrors.ErrBiometricNotEnrolled
	}
	vault, err := g.loadVault()
	if err != nil {
		return "", kerrors.ErrBiometricNotEnrolled
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	userHandle, err := g.assert(ctx, meta)
	if err != nil {
		return "", err
	}
	return openVault(*vault, userHandle)
}

// assert issues a fresh challenge for meta's credential and verifies the
// response.
func (g *Gate) assert(ctx context.Context, meta *Credential) ([]byte, error) {
	credID, err := b64url.DecodeString(meta.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("stored credential id is malformed: %w", err)
	}
	challenge, err := randomBytes(32)
	if err != nil {
		return nil, err
	}

	assertion, err := g.auth.RequestAssertion(ctx, AssertionOptions{
		Challenge: challenge,
		RPID:      meta.RPID,
		AllowCredentials: []CredentialDescriptor{{
			Type:       "public-key",
			ID:         credID,
			Transports: meta.Transports,
		}},
		UserVerification: "required",
		Timeout:          g.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("authenticator did not respond: %w", err)
	}

	handle, err := VerifyAssertion(assertion, Expectation{
		CredentialID: credID,
		Challenge:    challenge,
		Origin:       g.cfg.Origin,
		RPID:         meta.RPID,
		PublicKey:    meta.PublicKey,
		Algorithm:    meta.Alg,
	})
	if err != nil {
		g.log.Debugf("Assertion rejected: %v", err)
		return nil, err
	}
	return handle, nil
}

// Disable forgets the credential and vault. The authenticator keeps its key.
func (g *Gate) Disable() error {
	var errs []error
	for _, slot := range []string{SlotMeta, SlotVault} {
		if err := g.store.Delete(slot); err != nil && !errors.Is(err, kv.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
