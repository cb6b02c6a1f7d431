package revwalk

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/gitlab-org/refgate/internal/git"
	"gitlab.com/gitlab-org/refgate/internal/git/gitcmd"
)

// Runner executes a git sub command in the repository under inspection.
type Runner interface {
	Run(ctx context.Context, subCmd gitcmd.SubCmd) ([]byte, error)
}

// Walker enumerates commits that a reference update would newly introduce
// into a repository.
type Walker struct {
	runner Runner
}

// NewWalker returns a Walker backed by the given command runner.
func NewWalker(runner Runner) *Walker {
	return &Walker{runner: runner}
}

// NewObjects lists each commit reachable from new but not previously
// admitted, exactly once, in rev-list order.
//
// When the update moves an existing ref, everything reachable from the old
// tip has been admitted before and is hidden. When the update creates a
// ref there is no old tip, so all existing branch heads are hidden
// instead, with the exception of the ref being pushed: in pre-push style
// deployments that ref may already point at new, and hiding it would hide
// the very history under inspection.
func (w *Walker) NewObjects(ctx context.Context, update git.Update) ([]git.ObjectID, error) {
	revisions := []string{update.NewOID.String()}

	if !update.OldOID.IsZero() {
		revisions = append(revisions, "^"+update.OldOID.String())
	} else {
		tips, err := w.branchTips(ctx)
		if err != nil {
			return nil, err
		}
		for _, tip := range tips {
			if tip == update.Ref {
				continue
			}
			revisions = append(revisions, "^"+tip.String())
		}
	}

	out, err := w.runner.Run(ctx, gitcmd.SubCmd{
		Name: "rev-list",
		Args: revisions,
	})
	if err != nil {
		return nil, fmt.Errorf("listing new objects of %s: %w", update.Ref, err)
	}

	var oids []git.ObjectID
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		oid := git.ObjectID(line)
		if !oid.IsZero() {
			if err := git.ValidateHex(line); err != nil {
				return nil, fmt.Errorf("rev-list of %s: %w", update.Ref, err)
			}
		}
		oids = append(oids, oid)
	}

	return oids, nil
}

func (w *Walker) branchTips(ctx context.Context) ([]git.ReferenceName, error) {
	out, err := w.runner.Run(ctx, gitcmd.SubCmd{
		Name:  "for-each-ref",
		Flags: []gitcmd.Flag{gitcmd.ValueFlag{Name: "--format", Value: "%(refname)"}},
		Args:  []string{"refs/heads/"},
	})
	if err != nil {
		return nil, fmt.Errorf("listing branch tips: %w", err)
	}

	var tips []git.ReferenceName
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		tips = append(tips, git.ReferenceName(line))
	}

	return tips, nil
}
