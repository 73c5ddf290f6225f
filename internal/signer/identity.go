package signer

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// LoadKeyring reads a private keyring file, armored or binary
func LoadKeyring(path string) (openpgp.EntityList, error) {
	if path == "" {
		return nil, fmt.Errorf("keyring path is empty")
	}

	keyFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	defer keyFile.Close()

	// Try to parse as armored keyring first
	entities, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		// Try as binary keyring
		if _, err := keyFile.Seek(0, 0); err != nil {
			return nil, err
		}
		entities, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read keyring: %w", err)
		}
	}

	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in keyring")
	}

	return entities, nil
}

// IdentityOf returns the identity of a keyring entity
func IdentityOf(entity *openpgp.Entity) Identity {
	ident := Identity{
		KeyID:       fmt.Sprintf("%016X", entity.PrimaryKey.KeyId),
		Fingerprint: strings.ToUpper(hex.EncodeToString(entity.PrimaryKey.Fingerprint)),
	}

	// Identities is a map; pick the first user ID in sorted order
	names := make([]string, 0, len(entity.Identities))
	for name := range entity.Identities {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		ident.Name = names[0]
	}

	return ident
}

// Candidates returns the keyring entities that can sign, ordered by
// fingerprint. Keyring file order is incidental; fingerprint order makes
// "first" mean the same thing on every run.
func Candidates(entities openpgp.EntityList) []*openpgp.Entity {
	var candidates []*openpgp.Entity
	for _, entity := range entities {
		if entity.PrivateKey != nil {
			candidates = append(candidates, entity)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return IdentityOf(candidates[i]).Fingerprint < IdentityOf(candidates[j]).Fingerprint
	})

	return candidates
}

// SelectIdentity resolves exactly one signing key from the keyring.
// A configured selector must match a single key; with no selector the
// first candidate in fingerprint order is used.
func SelectIdentity(entities openpgp.EntityList, selector, fallback string) (*openpgp.Entity, error) {
	candidates := Candidates(entities)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("keyring contains no private signing keys")
	}

	if selector == "" {
		selector = fallback
	}
	if selector == "" {
		return candidates[0], nil
	}

	matches := matchSelector(candidates, selector)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no signing key matches %q", selector)
	case 1:
		return matches[0], nil
	}

	ids := make([]string, len(matches))
	for i, match := range matches {
		ids[i] = IdentityOf(match).KeyID
	}
	return nil, fmt.Errorf("selector %q is ambiguous: matches %s", selector, strings.Join(ids, ", "))
}

// matchSelector matches a selector against key IDs, fingerprints and user
// IDs. A hex selector of 8 or more characters matches a fingerprint
// suffix, anything else matches user IDs case-insensitively.
func matchSelector(candidates []*openpgp.Entity, selector string) []*openpgp.Entity {
	hexSel := strings.ToUpper(strings.TrimPrefix(strings.TrimPrefix(selector, "0x"), "0X"))
	isHex := len(hexSel) >= 8 && isHexString(hexSel)

	var matches []*openpgp.Entity
	for _, candidate := range candidates {
		ident := IdentityOf(candidate)
		if isHex {
			if strings.HasSuffix(ident.Fingerprint, hexSel) {
				matches = append(matches, candidate)
			}
			continue
		}
		if strings.Contains(strings.ToLower(ident.Name), strings.ToLower(selector)) {
			matches = append(matches, candidate)
		}
	}

	return matches
}

func isHexString(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
