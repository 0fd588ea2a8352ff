package secrets

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

// EnvelopeVersion is written into every envelope produced by this package.
const EnvelopeVersion = 1

// Envelope is the storage shape of any string encrypted with AES-256-GCM.
// CT carries the authentication tag.
type Envelope struct {
	IV []byte
	CT []byte
}

type envelopeWire struct {
	Version int    `json:"version"`
	IV      string `json:"iv"`
	CT      string `json:"ct"`
}

type envelopeRaw struct {
	Version int             `json:"version"`
	IV      json.RawMessage `json:"iv"`
	CT      json.RawMessage `json:"ct"`
}

// MarshalJSON writes {"version":1,"iv":"<base64>","ct":"<base64>"}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeWire{
		Version: EnvelopeVersion,
		IV:      base64.StdEncoding.EncodeToString(e.IV),
		CT:      base64.StdEncoding.EncodeToString(e.CT),
	})
}

// UnmarshalJSON accepts both the base64 form and the legacy form where iv and
// ct are arrays of byte values.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw envelopeRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	iv, err := decodeField(raw.IV)
	if err != nil {
		return fmt.Errorf("iv: %w", err)
	}
	ct, err := decodeField(raw.CT)
	if err != nil {
		return fmt.Errorf("ct: %w", err)
	}
	if len(iv) == 0 || len(ct) == 0 {
		return fmt.Errorf("envelope is missing iv or ct")
	}
	e.IV, e.CT = iv, ct
	return nil
}

func decodeField(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(s)
	case '[':
		var values []int
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, err
		}
		out := make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("byte value %d out of range", v)
			}
			out[i] = byte(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported encoding")
	}
}

// String returns the envelope JSON text.
func (e Envelope) String() string {
	data, _ := e.MarshalJSON()
	return string(data)
}

// Equal reports whether both envelopes carry the same bytes.
func (e Envelope) Equal(o Envelope) bool {
	return bytes.Equal(e.IV, o.IV) && bytes.Equal(e.CT, o.CT)
}

// ParseEnvelope decodes envelope JSON text. Anything that is not a readable
// envelope is reported as ErrDecryptionFailed.
func ParseEnvelope(text string) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal([]byte(text), &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: malformed envelope: %v", kerrors.ErrDecryptionFailed, err)
	}
	return e, nil
}
