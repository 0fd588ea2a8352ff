package biometric

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/PolarWolf314/diario/internal/kv"
)

// ErrNotAllowed mirrors the platform error for a ceremony that matched no
// usable credential.
var ErrNotAllowed = errors.New("no matching credential on this authenticator")

const softwareKeyPrefix = "swauthn:"

// softwareKey is what SoftwareAuthenticator keeps per credential.
type softwareKey struct {
	Alg        int    `json:"alg"`
	RPID       string `json:"rpId"`
	PrivateKey []byte `json:"privateKey"`
	UserHandle []byte `json:"userHandle"`
	Counter    uint32 `json:"counter"`
}

// SoftwareAuthenticator emulates a user-verifying platform authenticator with
// keys held in a kv store. It always reports user presence and verification.
type SoftwareAuthenticator struct {
	store  kv.Store
	origin string

	// Algorithm selects the key type for new credentials. Zero means ES256.
	Algorithm int

	// RSABits is the modulus size for RS256 credentials.
	RSABits int

	mu sync.Mutex
}

var _ Authenticator = (*SoftwareAuthenticator)(nil)

// NewSoftwareAuthenticator signs client data for origin.
func NewSoftwareAuthenticator(store kv.Store, origin string) *SoftwareAuthenticator {
	return &SoftwareAuthenticator{store: store, origin: origin, RSABits: 2048}
}

func (a *SoftwareAuthenticator) Available(context.Context) (bool, error) {
	return true, nil
}

func (a *SoftwareAuthenticator) CreateCredential(ctx context.Context, opts CreationOptions) (*PublicCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	alg := a.Algorithm
	if alg == 0 {
		alg = AlgES256
	}
	if !slices.Contains(opts.Algorithms, alg) {
		return nil, fmt.Errorf("%w: algorithm %d not requested", ErrNotAllowed, alg)
	}

	var (
		priv crypto.Signer
		err  error
	)
	switch alg {
	case AlgES256:
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case AlgRS256:
		priv, err = rsa.GenerateKey(rand.Reader, a.RSABits)
	default:
		return nil, fmt.Errorf("unsupported algorithm %d", alg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate credential key: %w", err)
	}

	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	spki, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return nil, err
	}
	rawID, err := randomBytes(16)
	if err != nil {
		return nil, err
	}

	rec := softwareKey{
		Alg:        alg,
		RPID:       opts.RPID,
		PrivateKey: pkcs8,
		UserHandle: append([]byte(nil), opts.UserID...),
	}
	if err := kv.SetJSON(a.store, softwareKeyPrefix+b64url.EncodeToString(rawID), rec); err != nil {
		return nil, err
	}

	return &PublicCredential{
		RawID:      rawID,
		PublicKey:  spki,
		Algorithm:  alg,
		Transports: []string{"internal"},
	}, nil
}

func (a *SoftwareAuthenticator) RequestAssertion(ctx context.Context, opts AssertionOptions) (*Assertion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, allowed := range opts.AllowCredentials {
		slot := softwareKeyPrefix + b64url.EncodeToString(allowed.ID)
		var rec softwareKey
		if err := kv.GetJSON(a.store, slot, &rec); err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if rec.RPID != opts.RPID {
			continue
		}

		rec.Counter++
		assertion, err := a.sign(rec, allowed.ID, opts.Challenge)
		if err != nil {
			return nil, err
		}
		if err := kv.SetJSON(a.store, slot, rec); err != nil {
			return nil, err
		}
		return assertion, nil
	}
	return nil, ErrNotAllowed
}

func (a *SoftwareAuthenticator) sign(rec softwareKey, rawID, challenge []byte) (*Assertion, error) {
	clientData, err := json.Marshal(ClientData{
		Type:      "webauthn.get",
		Challenge: b64url.EncodeToString(challenge),
		Origin:    a.origin,
	})
	if err != nil {
		return nil, err
	}

	rpHash := sha256.Sum256([]byte(rec.RPID))
	authData := make([]byte, 0, minAuthDataLen)
	authData = append(authData, rpHash[:]...)
	authData = append(authData, flagUserPresent|flagUserVerified)
	authData = binary.BigEndian.AppendUint32(authData, rec.Counter)

	clientHash := sha256.Sum256(clientData)
	digest := sha256.Sum256(append(append([]byte(nil), authData...), clientHash[:]...))

	key, err := x509.ParsePKCS8PrivateKey(rec.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("stored credential key is unreadable: %w", err)
	}

	var sig []byte
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		sig, err = ecdsa.SignASN1(rand.Reader, k, digest[:])
	case *rsa.PrivateKey:
		sig, err = rsa.SignPKCS1v15(rand.Reader, k, crypto.SHA256, digest[:])
	default:
		err = fmt.Errorf("unsupported key type %T", key)
	}
	if err != nil {
		return nil, err
	}

	return &Assertion{
		Type:              "public-key",
		RawID:             append([]byte(nil), rawID...),
		ClientDataJSON:    clientData,
		AuthenticatorData: authData,
		Signature:         sig,
		UserHandle:        append([]byte(nil), rec.UserHandle...),
	}, nil
}
