package gate

import (
	"context"
	"fmt"

	"gitlab.com/gitlab-org/refgate/internal/git"
)

// admitDelete applies the deletion rules. Deletions carry no new objects,
// so they bypass the walk and all signature checks.
func (g *Gate) admitDelete(update git.Update) error {
	switch update.Ref.Class() {
	case git.RefClassBranch:
		if !g.cfg.AllowDeleteBranch {
			return g.reject("Deleting a branch is not allowed in this repository")
		}
	case git.RefClassRemote:
		if !g.cfg.AllowDeleteBranch {
			return g.reject("Deleting a tracking branch is not allowed in this repository")
		}
	case git.RefClassTag:
		if !g.cfg.AllowDeleteTag {
			return g.reject("Deleting a tag is not allowed in this repository")
		}
	}

	g.logger.Printf("Accepting deletion of %s", update.Ref)
	return nil
}

// admitChange admits a create or update of a ref: master discipline
// first, then the walk over newly introduced commits, and tag handling
// when the walk comes back empty.
func (g *Gate) admitChange(ctx context.Context, update git.Update) error {
	if update.Ref.IsMaster() && !g.cfg.AllowCommitsOnMaster {
		if err := g.checkMaster(ctx, update); err != nil {
			return err
		}
	}

	newObjects, err := g.walker.NewObjects(ctx, update)
	if err != nil {
		return fmt.Errorf("walking new objects of %s: %w", update.Ref, err)
	}

	if len(newObjects) == 0 {
		return g.admitTarget(ctx, update)
	}

	for _, oid := range newObjects {
		if err := g.checkNewObject(ctx, update, oid); err != nil {
			return err
		}
	}

	return nil
}

// checkMaster enforces the merges-only discipline of the integration
// branch. It runs before the walk because it depends on the direct parent
// relationship between old and new tip, not on the traversed set.
func (g *Gate) checkMaster(ctx context.Context, update git.Update) error {
	if update.OldOID.IsZero() {
		g.logger.Printf("Accepting initial creation of %s", update.Ref)
		return nil
	}

	tip, err := g.objects.Commit(ctx, update.NewOID)
	if err != nil {
		return fmt.Errorf("reading tip of %s: %w", update.Ref, err)
	}

	if !tip.IsMerge() || !tip.HasParent(update.OldOID) {
		return g.reject("Master only accepts merges of feature branches.")
	}

	return nil
}

// checkNewObject applies the per-commit rules to one object yielded by
// the walk.
func (g *Gate) checkNewObject(ctx context.Context, update git.Update, oid git.ObjectID) error {
	if oid.IsZero() {
		return g.reject("Deletion of ref %s in the middle of the commit graph?", update.Ref)
	}

	kind, err := g.classify(ctx, oid)
	if err != nil {
		return err
	}

	if update.Kind() == git.UpdateKindCreate && kind == git.ObjectKindCommit && g.cfg.DenyCreateBranch {
		return g.reject("Creating a branch is not allowed in this repository")
	}

	switch kind {
	case git.ObjectKindCommit, git.ObjectKindMerge:
		if g.cfg.AllowUnsignedCommits {
			return nil
		}
		return g.checkObjectSignature(ctx, oid, kind)
	default:
		info, infoErr := g.objects.Info(ctx, oid)
		if infoErr != nil {
			return infoErr
		}
		return g.reject("Unknown type of update to ref %s of type %s", update.Ref, info.Type)
	}
}

// classify derives the effective object kind exactly once: a commit with
// two or more parents is a merge, everything else keeps the type the
// object store reported.
func (g *Gate) classify(ctx context.Context, oid git.ObjectID) (git.ObjectKind, error) {
	info, err := g.objects.Info(ctx, oid)
	if err != nil {
		return git.ObjectKindUnknown, fmt.Errorf("classifying %s: %w", oid, err)
	}

	switch info.Type {
	case git.ObjectTypeCommit:
		commit, err := g.objects.Commit(ctx, oid)
		if err != nil {
			return git.ObjectKindUnknown, fmt.Errorf("classifying %s: %w", oid, err)
		}
		return commit.Kind(), nil
	case git.ObjectTypeTag:
		return git.ObjectKindTag, nil
	default:
		return git.ObjectKindUnknown, nil
	}
}

// checkObjectSignature requires a cryptographically valid signature by an
// allow-listed collaborator on a commit or merge.
func (g *Gate) checkObjectSignature(ctx context.Context, oid git.ObjectID, kind git.ObjectKind) error {
	valid, fingerprint, err := g.verifier.Verify(ctx, oid, kind)
	if err != nil {
		return fmt.Errorf("verifying %s %s: %w", kind, oid, err)
	}
	if !valid {
		return g.reject("Bad signature on %s %s", kind, oid)
	}

	identity, ok := g.resolver.Resolve(fingerprint)
	if !ok {
		return g.reject("%s %s signed by unauthorised key %s", kind, oid, fingerprint)
	}

	g.logger.Printf("Good signature on %s %s by %s (%s)", kind, oid, identity, fingerprint)
	return nil
}

// admitTarget handles updates that introduce no new commits. The target
// decides what the push actually is: a commit means a lightweight tag, a
// tag object means an annotated tag, anything else has no business being
// pushed.
func (g *Gate) admitTarget(ctx context.Context, update git.Update) error {
	info, err := g.objects.Info(ctx, update.NewOID)
	if err != nil {
		return fmt.Errorf("reading target of %s: %w", update.Ref, err)
	}

	switch info.Type {
	case git.ObjectTypeCommit:
		if !g.cfg.AllowUnsignedTags || !g.cfg.AllowUnannotated {
			return g.reject("The un-annotated tag %s is not allowed in this repository", update.Ref)
		}
		g.logger.Printf("Accepting un-annotated tag %s", update.Ref)
		return nil
	case git.ObjectTypeTag:
		return g.admitAnnotatedTag(ctx, update)
	default:
		return g.reject("No new commits, but %s is a %s instead of a tag?", update.Ref, info.Type)
	}
}

// admitAnnotatedTag applies the annotated tag rules. A disallowed
// modification rejects before any signature work happens, so a rejected
// modification can never produce a good-signature line.
func (g *Gate) admitAnnotatedTag(ctx context.Context, update git.Update) error {
	if !update.OldOID.IsZero() && !g.cfg.AllowModifyTag {
		return g.reject("Modifying a tag is not allowed in this repository")
	}

	if g.cfg.AllowUnsignedTags {
		g.logger.Printf("Accepting tag %s", update.Ref)
		return nil
	}

	valid, fingerprint, err := g.verifier.Verify(ctx, update.NewOID, git.ObjectKindTag)
	if err != nil {
		return fmt.Errorf("verifying tag %s: %w", update.Ref, err)
	}
	if !valid {
		return g.reject("Rejecting tag %s due to lack of a valid GPG signature", update.Ref)
	}

	identity, ok := g.resolver.Resolve(fingerprint)
	if !ok {
		return g.reject("Rejecting tag %s due to lack of a valid GPG signature", update.Ref)
	}

	g.logger.Printf("Good signature on tag %s by %s (%s)", update.Ref, identity, fingerprint)
	return nil
}
