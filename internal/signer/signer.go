package signer

// Identity describes one signing key in a keyring
type Identity struct {
	// KeyID is the 16 hex character key ID of the primary key
	KeyID string

	// Fingerprint is the full primary key fingerprint in hex
	Fingerprint string

	// Name is the primary user ID
	Name string
}

// Signer interface for signing repository metadata
type Signer interface {
	// SignCleartext creates a cleartext signature (for InRelease)
	SignCleartext(data []byte) ([]byte, error)

	// SignDetached creates an armored detached signature (for Release.gpg
	// and per-package signatures)
	SignDetached(data []byte) ([]byte, error)

	// GetPublicKey returns the public key in armored format
	GetPublicKey() ([]byte, error)

	// Identity returns the identity the signer signs as
	Identity() Identity
}

// Verifier checks signatures using public key material only
type Verifier interface {
	// VerifyCleartext checks a cleartext signed message
	VerifyCleartext(signed []byte) error

	// VerifyDetached checks an armored detached signature over data
	VerifyDetached(data, sig []byte) error
}
