package gate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCollaborators(t *testing.T) {
	t.Parallel()

	t.Run("valid mapping", func(t *testing.T) {
		collaborators, err := NewCollaborators(map[string]string{
			"alice@example.com": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			"bob@example.com":   "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
		})
		require.NoError(t, err)
		require.Equal(t, 2, collaborators.Count())

		identity, ok := collaborators.IdentityByFingerprint("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		require.True(t, ok)
		require.Equal(t, "alice@example.com", identity)

		identity, ok = collaborators.IdentityByFingerprint("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
		require.True(t, ok)
		require.Equal(t, "bob@example.com", identity)

		_, ok = collaborators.IdentityByFingerprint("CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
		require.False(t, ok)
	})

	for _, tc := range []struct {
		desc        string
		fingerprint string
	}{
		{desc: "too short", fingerprint: "AAAA"},
		{desc: "too long", fingerprint: strings.Repeat("A", 41)},
		{desc: "not hex", fingerprint: strings.Repeat("Z", 40)},
		{desc: "empty", fingerprint: ""},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := NewCollaborators(map[string]string{"alice@example.com": tc.fingerprint})
			require.ErrorContains(t, err, "malformed fingerprint")
		})
	}
}

func TestLoadCollaborators(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), CollaboratorsFile)
		require.NoError(t, os.WriteFile(path, []byte(
			"alice@example.com: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n"+
				"bob@example.com: BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB\n",
		), 0o644))

		collaborators, err := LoadCollaborators(path)
		require.NoError(t, err)
		require.Equal(t, 2, collaborators.Count())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCollaborators(filepath.Join(t.TempDir(), CollaboratorsFile))
		require.ErrorContains(t, err, "reading collaborators file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), CollaboratorsFile)
		require.NoError(t, os.WriteFile(path, []byte("- not\n-a\nmapping: ["), 0o644))

		_, err := LoadCollaborators(path)
		require.ErrorContains(t, err, "parsing collaborators file")
	})

	t.Run("malformed fingerprint", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), CollaboratorsFile)
		require.NoError(t, os.WriteFile(path, []byte("alice@example.com: nothex\n"), 0o644))

		_, err := LoadCollaborators(path)
		require.ErrorContains(t, err, `collaborator "alice@example.com" has malformed fingerprint "nothex"`)
	})
}
