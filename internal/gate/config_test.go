package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConfigReader struct {
	values map[string]bool
	err    error
}

func (r *fakeConfigReader) ConfigBool(ctx context.Context, key string) (bool, error) {
	return r.values[key], r.err
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		desc     string
		values   map[string]bool
		expected Config
	}{
		{
			desc:     "nothing set",
			expected: Config{},
		},
		{
			desc: "single option set",
			values: map[string]bool{
				"hooks.allowdeletebranch": true,
			},
			expected: Config{AllowDeleteBranch: true},
		},
		{
			desc: "all options set",
			values: map[string]bool{
				"hooks.allowunsignedcommits": true,
				"hooks.allowunsignedtags":    true,
				"hooks.allowcommitsonmaster": true,
				"hooks.allowunannotated":     true,
				"hooks.allowdeletetag":       true,
				"hooks.allowmodifytag":       true,
				"hooks.allowdeletebranch":    true,
				"hooks.denycreatebranch":     true,
			},
			expected: Config{
				AllowUnsignedCommits: true,
				AllowUnsignedTags:    true,
				AllowCommitsOnMaster: true,
				AllowUnannotated:     true,
				AllowDeleteTag:       true,
				AllowModifyTag:       true,
				AllowDeleteBranch:    true,
				DenyCreateBranch:     true,
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg, err := LoadConfig(context.Background(), &fakeConfigReader{values: tc.values})
			require.NoError(t, err)
			require.Equal(t, tc.expected, cfg)
		})
	}

	t.Run("reader failure", func(t *testing.T) {
		_, err := LoadConfig(context.Background(), &fakeConfigReader{err: errors.New("git config: exit status 128")})
		require.ErrorContains(t, err, "loading gate config")
	})
}
