package biometric

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

// Verification failures. Each wraps ErrBiometricVerification.
var (
	ErrCredentialMismatch   = fmt.Errorf("%w: credential does not match the enrolled one", kerrors.ErrBiometricVerification)
	ErrClientDataType       = fmt.Errorf("%w: unexpected client data", kerrors.ErrBiometricVerification)
	ErrChallengeMismatch    = fmt.Errorf("%w: challenge does not match", kerrors.ErrBiometricVerification)
	ErrOriginMismatch       = fmt.Errorf("%w: origin does not match", kerrors.ErrBiometricVerification)
	ErrRelyingPartyMismatch = fmt.Errorf("%w: authenticator data is not for this relying party", kerrors.ErrBiometricVerification)
	ErrUserNotVerified      = fmt.Errorf("%w: user presence or verification flag missing", kerrors.ErrBiometricVerification)
	ErrSignatureInvalid     = fmt.Errorf("%w: signature is invalid", kerrors.ErrBiometricVerification)
	ErrMissingUserHandle    = fmt.Errorf("%w: authenticator returned no user handle", kerrors.ErrBiometricVerification)
)

var errNoAuthenticator = errors.New("no platform authenticator")

// Authenticator data flag bits.
const (
	flagUserPresent  = 0x01
	flagUserVerified = 0x04
)

const minAuthDataLen = 37

// ClientData is the subset of collected client data that is checked.
type ClientData struct {
	Type        string `json:"type"`
	Challenge   string `json:"challenge"`
	Origin      string `json:"origin"`
	CrossOrigin bool   `json:"crossOrigin,omitempty"`
}

// Expectation is what a valid assertion must match.
type Expectation struct {
	CredentialID []byte
	Challenge    []byte
	Origin       string
	RPID         string
	PublicKey    JWK
	Algorithm    int
}

// VerifyAssertion runs every self-verification check in order and returns the
// user handle on success.
func VerifyAssertion(a *Assertion, exp Expectation) ([]byte, error) {
	if a == nil || a.Type != "public-key" {
		return nil, fmt.Errorf("%w: credential type is not public-key", ErrCredentialMismatch)
	}
	if !bytes.Equal(a.RawID, exp.CredentialID) {
		return nil, ErrCredentialMismatch
	}

	var cd ClientData
	if err := json.Unmarshal(a.ClientDataJSON, &cd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientDataType, err)
	}
	if cd.Type != "webauthn.get" {
		return nil, fmt.Errorf("%w: type %q", ErrClientDataType, cd.Type)
	}
	if cd.Challenge != b64url.EncodeToString(exp.Challenge) {
		return nil, ErrChallengeMismatch
	}
	if cd.Origin != exp.Origin {
		return nil, fmt.Errorf("%w: got %q", ErrOriginMismatch, cd.Origin)
	}

	if len(a.AuthenticatorData) < minAuthDataLen {
		return nil, fmt.Errorf("%w: authenticator data is %d bytes", ErrRelyingPartyMismatch, len(a.AuthenticatorData))
	}
	rpHash := sha256.Sum256([]byte(exp.RPID))
	if !bytes.Equal(a.AuthenticatorData[:32], rpHash[:]) {
		return nil, ErrRelyingPartyMismatch
	}

	flags := a.AuthenticatorData[32]
	if flags&flagUserPresent == 0 || flags&flagUserVerified == 0 {
		return nil, ErrUserNotVerified
	}

	clientHash := sha256.Sum256(a.ClientDataJSON)
	signed := make([]byte, 0, len(a.AuthenticatorData)+len(clientHash))
	signed = append(signed, a.AuthenticatorData...)
	signed = append(signed, clientHash[:]...)
	if err := verifySignature(exp.PublicKey, exp.Algorithm, signed, a.Signature); err != nil {
		return nil, err
	}

	if len(a.UserHandle) == 0 {
		return nil, ErrMissingUserHandle
	}
	return a.UserHandle, nil
}

func verifySignature(key JWK, alg int, signed, sig []byte) error {
	pub, err := key.PublicKey()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	digest := sha256.Sum256(signed)

	switch alg {
	case AlgES256:
		ec, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: key does not match ES256", ErrSignatureInvalid)
		}
		raw, err := DERToRaw(sig, 32)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		r := new(big.Int).SetBytes(raw[:32])
		s := new(big.Int).SetBytes(raw[32:])
		if !ecdsa.Verify(ec, digest[:], r, s) {
			return ErrSignatureInvalid
		}
	case AlgRS256:
		rk, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: key does not match RS256", ErrSignatureInvalid)
		}
		if err := rsa.VerifyPKCS1v15(rk, crypto.SHA256, digest[:], sig); err != nil {
			return ErrSignatureInvalid
		}
	default:
		return fmt.Errorf("%w: unsupported algorithm %d", ErrSignatureInvalid, alg)
	}
	return nil
}
