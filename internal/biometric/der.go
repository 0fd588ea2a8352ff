package biometric

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// DERToRaw converts an ASN.1 DER ECDSA signature into the fixed-width r||s
// form, each half left-padded to size bytes.
func DERToRaw(sig []byte, size int) ([]byte, error) {
	var (
		inner cryptobyte.String
		r, s  cryptobyte.String
	)
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("invalid DER signature: expected a single SEQUENCE")
	}
	if !inner.ReadASN1(&r, asn1.INTEGER) {
		return nil, fmt.Errorf("invalid DER signature: expected INTEGER for r")
	}
	if !inner.ReadASN1(&s, asn1.INTEGER) || !inner.Empty() {
		return nil, fmt.Errorf("invalid DER signature: expected INTEGER for s")
	}

	raw := make([]byte, 2*size)
	if err := putFixed(raw[:size], r); err != nil {
		return nil, fmt.Errorf("r: %w", err)
	}
	if err := putFixed(raw[size:], s); err != nil {
		return nil, fmt.Errorf("s: %w", err)
	}
	return raw, nil
}

// putFixed strips DER sign padding and right-aligns v in dst.
func putFixed(dst []byte, v []byte) error {
	for len(v) > 0 && v[0] == 0 {
		v = v[1:]
	}
	if len(v) > len(dst) {
		return fmt.Errorf("integer is %d bytes, expected at most %d", len(v), len(dst))
	}
	copy(dst[len(dst)-len(v):], v)
	return nil
}
