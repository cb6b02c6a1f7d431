// Package gpg wraps the OpenPGP keyring the push gate verifies
// signatures against. The keyring is read once per invocation; all
// verification happens locally, no key servers are consulted.
package gpg

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

const armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE-----"

// Key identifies one public key of the keyring by the full uppercase
// hexadecimal fingerprint of its primary key.
type Key struct {
	Fingerprint string

	entity *openpgp.Entity
}

// Keyring is a set of public keys loaded from a GPG-compatible keyring
// file.
type Keyring struct {
	entities openpgp.EntityList
}

// LoadKeyring reads a public keyring from disk. Both binary and
// ASCII-armored keyrings are accepted.
func LoadKeyring(path string) (*Keyring, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(raw))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing keyring %q: %w", path, err)
		}
	}

	return NewKeyring(entities), nil
}

// NewKeyring wraps an already parsed entity list.
func NewKeyring(entities openpgp.EntityList) *Keyring {
	return &Keyring{entities: entities}
}

// KeysByID returns every key of the keyring matching the given key ID.
// The ID may be a full 40-hex fingerprint, a 16-hex long ID or an 8-hex
// short ID, optionally prefixed with "0x", compared case-insensitively.
// Subkey matches resolve to their primary key. Ambiguity is the caller's
// problem: all matches are returned.
func (k *Keyring) KeysByID(id string) []Key {
	needle := strings.ToUpper(strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X"))
	if needle == "" {
		return nil
	}

	var keys []Key
	for _, entity := range k.entities {
		if entityMatchesID(entity, needle) {
			keys = append(keys, Key{
				Fingerprint: Fingerprint(entity),
				entity:      entity,
			})
		}
	}

	return keys
}

func entityMatchesID(entity *openpgp.Entity, needle string) bool {
	if strings.HasSuffix(Fingerprint(entity), needle) {
		return true
	}
	for _, subkey := range entity.Subkeys {
		if strings.HasSuffix(fmt.Sprintf("%X", subkey.PublicKey.Fingerprint), needle) {
			return true
		}
	}
	return false
}

// VerifyDetached checks a detached signature over payload and returns the
// full fingerprint of the signing key. Armored and binary signatures are
// both accepted. An unknown signer, a corrupt signature or a payload
// mismatch all surface as an error.
func (k *Keyring) VerifyDetached(signature, payload []byte) (string, error) {
	var (
		signer *openpgp.Entity
		err    error
	)

	config := &packet.Config{}
	if bytes.Contains(signature, []byte(armoredSignaturePrefix)) {
		signer, err = openpgp.CheckArmoredDetachedSignature(
			k.entities, bytes.NewReader(payload), bytes.NewReader(signature), config)
	} else {
		signer, err = openpgp.CheckDetachedSignature(
			k.entities, bytes.NewReader(payload), bytes.NewReader(signature), config)
	}
	if err != nil {
		return "", fmt.Errorf("checking detached signature: %w", err)
	}

	return Fingerprint(signer), nil
}

// Fingerprint renders the canonical uppercase hexadecimal fingerprint of
// an entity's primary key.
func Fingerprint(entity *openpgp.Entity) string {
	return fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)
}
