package gate

import (
	"context"
	"fmt"
)

// Config holds the repository-level policy switches of the gate. Every
// option defaults to false, which is the strict setting: commits and tags
// need a valid signature by an allow-listed collaborator, master only takes
// merges, and no lightweight tag, tag modification or deletion of a
// branch or tag is admitted.
type Config struct {
	// AllowUnsignedCommits permits commits and merges without a valid
	// signature.
	AllowUnsignedCommits bool
	// AllowUnsignedTags permits annotated tags without a valid signature.
	AllowUnsignedTags bool
	// AllowCommitsOnMaster lifts the merges-only discipline of master.
	AllowCommitsOnMaster bool
	// AllowUnannotated permits lightweight tags.
	AllowUnannotated bool
	// AllowDeleteTag permits deleting tags.
	AllowDeleteTag bool
	// AllowModifyTag permits moving an existing tag.
	AllowModifyTag bool
	// AllowDeleteBranch permits deleting branches and remote tracking
	// branches.
	AllowDeleteBranch bool
	// DenyCreateBranch forbids creating new branches.
	DenyCreateBranch bool
}

type configReader interface {
	ConfigBool(ctx context.Context, key string) (bool, error)
}

// LoadConfig reads all policy switches through the repository's config
// interface. Options that are not set resolve to false.
func LoadConfig(ctx context.Context, reader configReader) (Config, error) {
	var cfg Config

	for _, option := range []struct {
		key    string
		target *bool
	}{
		{"hooks.allowunsignedcommits", &cfg.AllowUnsignedCommits},
		{"hooks.allowunsignedtags", &cfg.AllowUnsignedTags},
		{"hooks.allowcommitsonmaster", &cfg.AllowCommitsOnMaster},
		{"hooks.allowunannotated", &cfg.AllowUnannotated},
		{"hooks.allowdeletetag", &cfg.AllowDeleteTag},
		{"hooks.allowmodifytag", &cfg.AllowModifyTag},
		{"hooks.allowdeletebranch", &cfg.AllowDeleteBranch},
		{"hooks.denycreatebranch", &cfg.DenyCreateBranch},
	} {
		value, err := reader.ConfigBool(ctx, option.key)
		if err != nil {
			return Config{}, fmt.Errorf("loading gate config: %w", err)
		}
		*option.target = value
	}

	return cfg, nil
}
