package gpg

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/require"
)

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func serializeArmored(w io.Writer, entity *openpgp.Entity) error {
	armored, err := armor.Encode(w, openpgp.PublicKeyType, nil)
	if err != nil {
		return err
	}
	if err := entity.Serialize(armored); err != nil {
		return err
	}
	return armored.Close()
}

func newTestEntity(t *testing.T, name, email string) *openpgp.Entity {
	t.Helper()

	entity, err := openpgp.NewEntity(name, "", email, &packet.Config{})
	require.NoError(t, err)

	return entity
}

func detachSign(t *testing.T, entity *openpgp.Entity, payload []byte) []byte {
	t.Helper()

	var signature bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&signature, entity, bytes.NewReader(payload), &packet.Config{}))

	return signature.Bytes()
}

func TestKeyringVerifyDetached(t *testing.T) {
	t.Parallel()

	alice := newTestEntity(t, "Alice", "alice@example.com")
	keyring := NewKeyring(openpgp.EntityList{alice})

	payload := []byte("tree 798e5474fafac9754ee6b82ab17af8d70df4fbd3\n\nCommit subject\n")
	signature := detachSign(t, alice, payload)

	t.Run("valid signature", func(t *testing.T) {
		fingerprint, err := keyring.VerifyDetached(signature, payload)
		require.NoError(t, err)
		require.Equal(t, Fingerprint(alice), fingerprint)
		require.Len(t, fingerprint, 40)
		require.Equal(t, strings.ToUpper(fingerprint), fingerprint)
	})

	t.Run("tampered payload", func(t *testing.T) {
		_, err := keyring.VerifyDetached(signature, append([]byte("tampered "), payload...))
		require.Error(t, err)
	})

	t.Run("unknown signer", func(t *testing.T) {
		mallory := newTestEntity(t, "Mallory", "mallory@example.com")
		_, err := keyring.VerifyDetached(detachSign(t, mallory, payload), payload)
		require.Error(t, err)
	})

	t.Run("garbage signature", func(t *testing.T) {
		_, err := keyring.VerifyDetached([]byte("not a signature"), payload)
		require.Error(t, err)
	})
}

func TestKeyringKeysByID(t *testing.T) {
	t.Parallel()

	alice := newTestEntity(t, "Alice", "alice@example.com")
	bob := newTestEntity(t, "Bob", "bob@example.com")
	keyring := NewKeyring(openpgp.EntityList{alice, bob})

	aliceFingerprint := Fingerprint(alice)

	for _, tc := range []struct {
		desc                 string
		id                   string
		expectedFingerprints []string
	}{
		{
			desc:                 "full fingerprint",
			id:                   aliceFingerprint,
			expectedFingerprints: []string{aliceFingerprint},
		},
		{
			desc:                 "lowercase fingerprint",
			id:                   strings.ToLower(aliceFingerprint),
			expectedFingerprints: []string{aliceFingerprint},
		},
		{
			desc:                 "long key ID",
			id:                   aliceFingerprint[24:],
			expectedFingerprints: []string{aliceFingerprint},
		},
		{
			desc:                 "short key ID",
			id:                   aliceFingerprint[32:],
			expectedFingerprints: []string{aliceFingerprint},
		},
		{
			desc:                 "0x prefixed key ID",
			id:                   "0x" + aliceFingerprint[24:],
			expectedFingerprints: []string{aliceFingerprint},
		},
		{
			desc: "unknown key ID",
			id:   "4444444444444444444444444444444444444444",
		},
		{
			desc: "empty ID",
			id:   "",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			keys := keyring.KeysByID(tc.id)

			var fingerprints []string
			for _, key := range keys {
				fingerprints = append(fingerprints, key.Fingerprint)
			}
			require.Equal(t, tc.expectedFingerprints, fingerprints)
		})
	}
}

func TestLoadKeyring(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadKeyring("testdata/does-not-exist.gpg")
		require.ErrorContains(t, err, "reading keyring")
	})

	t.Run("malformed file", func(t *testing.T) {
		path := t.TempDir() + "/pubring.gpg"
		require.NoError(t, writeFile(path, []byte("not a keyring")))

		_, err := LoadKeyring(path)
		require.ErrorContains(t, err, "parsing keyring")
	})

	t.Run("armored keyring", func(t *testing.T) {
		alice := newTestEntity(t, "Alice", "alice@example.com")

		var armored bytes.Buffer
		require.NoError(t, serializeArmored(&armored, alice))

		path := t.TempDir() + "/pubring.asc"
		require.NoError(t, writeFile(path, armored.Bytes()))

		keyring, err := LoadKeyring(path)
		require.NoError(t, err)
		require.Len(t, keyring.KeysByID(Fingerprint(alice)), 1)
	})
}
