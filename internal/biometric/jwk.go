package biometric

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"
)

var b64url = base64.RawURLEncoding

// JWK is the public half of a credential in JSON Web Key form.
type JWK struct {
	Kty    string   `json:"kty"`
	Alg    string   `json:"alg,omitempty"`
	Crv    string   `json:"crv,omitempty"`
	X      string   `json:"x,omitempty"`
	Y      string   `json:"y,omitempty"`
	N      string   `json:"n,omitempty"`
	E      string   `json:"e,omitempty"`
	Ext    bool     `json:"ext,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
}

// JWKFromSPKI converts a DER SubjectPublicKeyInfo into a JWK for alg.
func JWKFromSPKI(der []byte, alg int) (JWK, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return JWK{}, fmt.Errorf("failed to parse public key: %w", err)
	}

	switch alg {
	case AlgES256:
		ec, ok := pub.(*ecdsa.PublicKey)
		if !ok || ec.Curve != elliptic.P256() {
			return JWK{}, fmt.Errorf("ES256 credential must carry a P-256 key")
		}
		ek, err := ec.ECDH()
		if err != nil {
			return JWK{}, err
		}
		// Uncompressed point: 0x04 || X || Y.
		point := ek.Bytes()
		return JWK{
			Kty:    "EC",
			Alg:    "ES256",
			Crv:    "P-256",
			X:      b64url.EncodeToString(point[1:33]),
			Y:      b64url.EncodeToString(point[33:65]),
			Ext:    true,
			KeyOps: []string{"verify"},
		}, nil
	case AlgRS256:
		rk, ok := pub.(*rsa.PublicKey)
		if !ok {
			return JWK{}, fmt.Errorf("RS256 credential must carry an RSA key")
		}
		return JWK{
			Kty:    "RSA",
			Alg:    "RS256",
			N:      b64url.EncodeToString(rk.N.Bytes()),
			E:      b64url.EncodeToString(big.NewInt(int64(rk.E)).Bytes()),
			Ext:    true,
			KeyOps: []string{"verify"},
		}, nil
	default:
		return JWK{}, fmt.Errorf("unsupported algorithm %d", alg)
	}
}

// PublicKey rebuilds the Go public key described by the JWK.
func (j JWK) PublicKey() (crypto.PublicKey, error) {
	switch j.Kty {
	case "EC":
		if j.Crv != "P-256" {
			return nil, fmt.Errorf("unsupported curve %q", j.Crv)
		}
		x, err := b64url.DecodeString(j.X)
		if err != nil {
			return nil, fmt.Errorf("jwk x: %w", err)
		}
		y, err := b64url.DecodeString(j.Y)
		if err != nil {
			return nil, fmt.Errorf("jwk y: %w", err)
		}
		if len(x) != 32 || len(y) != 32 {
			return nil, fmt.Errorf("jwk coordinates must be 32 bytes")
		}
		point := append(append([]byte{0x04}, x...), y...)
		if _, err := ecdh.P256().NewPublicKey(point); err != nil {
			return nil, fmt.Errorf("jwk point is not on P-256: %w", err)
		}
		return &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}, nil
	case "RSA":
		n, err := b64url.DecodeString(j.N)
		if err != nil {
			return nil, fmt.Errorf("jwk n: %w", err)
		}
		e, err := b64url.DecodeString(j.E)
		if err != nil {
			return nil, fmt.Errorf("jwk e: %w", err)
		}
		exp := new(big.Int).SetBytes(e)
		if len(n) == 0 || !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
			return nil, fmt.Errorf("jwk rsa parameters are invalid")
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %q", j.Kty)
	}
}
