package signer

import (
	"fmt"

	"github.com/ProtonMail/gopenpgp/v3/crypto"
)

// PGPVerifier implements Verifier on top of gopenpgp. It only ever holds
// the public half of a key, so verification cannot accidentally depend on
// private material being present.
type PGPVerifier struct {
	pgp *crypto.PGPHandle
	key *crypto.Key
}

// NewPGPVerifier creates a verifier from an armored key. A private key is
// reduced to its public half.
func NewPGPVerifier(armored []byte) (*PGPVerifier, error) {
	key, err := crypto.NewKeyFromArmored(string(armored))
	if err != nil {
		return nil, fmt.Errorf("failed to parse verification key: %w", err)
	}

	if key.IsPrivate() {
		key, err = key.ToPublic()
		if err != nil {
			return nil, fmt.Errorf("failed to extract public key: %w", err)
		}
	}

	return &PGPVerifier{pgp: crypto.PGP(), key: key}, nil
}

// KeyID returns the hex key ID of the verification key
func (v *PGPVerifier) KeyID() string {
	return v.key.GetHexKeyID()
}

// VerifyCleartext checks a cleartext signed message
func (v *PGPVerifier) VerifyCleartext(signed []byte) error {
	verifier, err := v.pgp.Verify().VerificationKey(v.key).New()
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	result, err := verifier.VerifyCleartext(signed)
	if err != nil {
		return err
	}
	if sigErr := result.SignatureError(); sigErr != nil {
		return sigErr
	}

	return nil
}

// VerifyDetached checks an armored detached signature over data
func (v *PGPVerifier) VerifyDetached(data, sig []byte) error {
	verifier, err := v.pgp.Verify().VerificationKey(v.key).New()
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	result, err := verifier.VerifyDetached(data, sig, crypto.Armor)
	if err != nil {
		return err
	}
	if sigErr := result.SignatureError(); sigErr != nil {
		return sigErr
	}

	return nil
}
