package biometric

import (
	"context"
	"time"
)

// COSE algorithm identifiers accepted at enrollment.
const (
	AlgES256 = -7
	AlgRS256 = -257
)

// DefaultTimeout bounds every ceremony.
const DefaultTimeout = 60 * time.Second

// CredentialDescriptor names a credential the authenticator may use.
type CredentialDescriptor struct {
	Type       string
	ID         []byte
	Transports []string
}

// CreationOptions mirrors the registration parameters of a WebAuthn create
// ceremony.
type CreationOptions struct {
	Challenge        []byte
	RPID             string
	RPName           string
	UserID           []byte
	UserName         string
	UserDisplayName  string
	Algorithms       []int
	Attachment       string
	UserVerification string
	ResidentKey      string
	Attestation      string
	Timeout          time.Duration
}

// PublicCredential is what registration returns: the credential id and its
// public key in SubjectPublicKeyInfo DER form.
type PublicCredential struct {
	RawID      []byte
	PublicKey  []byte
	Algorithm  int
	Transports []string
}

// AssertionOptions mirrors the parameters of a WebAuthn get ceremony.
type AssertionOptions struct {
	Challenge        []byte
	RPID             string
	AllowCredentials []CredentialDescriptor
	UserVerification string
	Timeout          time.Duration
}

// Assertion is the authenticator's signed response.
type Assertion struct {
	Type              string
	RawID             []byte
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         []byte
	UserHandle        []byte
}

// Authenticator is the platform capability the gate drives.
type Authenticator interface {
	Available(ctx context.Context) (bool, error)
	CreateCredential(ctx context.Context, opts CreationOptions) (*PublicCredential, error)
	RequestAssertion(ctx context.Context, opts AssertionOptions) (*Assertion, error)
}

// Unsupported is an Authenticator for hosts without one.
type Unsupported struct{}

func (Unsupported) Available(context.Context) (bool, error) { return false, nil }

func (Unsupported) CreateCredential(context.Context, CreationOptions) (*PublicCredential, error) {
	return nil, errNoAuthenticator
}

func (Unsupported) RequestAssertion(context.Context, AssertionOptions) (*Assertion, error) {
	return nil, errNoAuthenticator
}
