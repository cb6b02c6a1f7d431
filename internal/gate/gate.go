// Package gate implements the admission decision for a batch of proposed
// reference updates. Each update is classified, its newly introduced
// commits are walked, signatures are verified against the keyring and the
// collaborator allow-list, and per-ref-class policy is applied. A single
// violation rejects the entire push.
package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"gitlab.com/gitlab-org/refgate/internal/git"
	"gitlab.com/gitlab-org/refgate/internal/log"
)

// Walker enumerates the commits a reference update newly introduces.
type Walker interface {
	NewObjects(ctx context.Context, update git.Update) ([]git.ObjectID, error)
}

// RejectionError carries the user-facing reason an update was refused.
type RejectionError struct {
	Reason string
}

func (e RejectionError) Error() string {
	return e.Reason
}

// Gate holds everything one admission run needs: policy switches, the
// allow-list, repository access and the crypto backend. It is constructed
// once per invocation and is read-only afterwards.
type Gate struct {
	cfg      Config
	objects  ObjectStore
	walker   Walker
	verifier *Verifier
	resolver *Resolver
	logger   *log.HookLogger
}

// New assembles a Gate from its collaborating services.
func New(
	cfg Config,
	collaborators *Collaborators,
	objects ObjectStore,
	walker Walker,
	crypto CryptoBackend,
	logger *log.HookLogger,
) *Gate {
	return &Gate{
		cfg:      cfg,
		objects:  objects,
		walker:   walker,
		verifier: NewVerifier(objects, crypto),
		resolver: NewResolver(crypto, collaborators, logger),
		logger:   logger,
	}
}

// Run consumes "<old> <new> <ref>" triples from r until EOF and admits
// them in order. The first rejected update terminates the run: partial
// acceptance of a push is not a valid outcome, so there is no point in
// looking at later updates.
func (g *Gate) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		update, err := git.ParseUpdate(line)
		if err != nil {
			return fmt.Errorf("malformed input: %w", err)
		}

		if err := g.Admit(ctx, update); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading updates: %w", err)
	}

	return nil
}

// Admit decides a single reference update. A nil return means the update
// is acceptable; a RejectionError carries the reason it is not. Any other
// error is an infrastructure failure, which rejects the push just the
// same.
func (g *Gate) Admit(ctx context.Context, update git.Update) error {
	g.logger.WithFields(logrus.Fields{
		"ref": update.Ref.String(),
		"old": update.OldOID.String(),
		"new": update.NewOID.String(),
	}).Debug("admitting update")

	if update.Kind() == git.UpdateKindDelete {
		return g.admitDelete(update)
	}
	return g.admitChange(ctx, update)
}

// reject logs the user-facing reason and turns it into the update's
// verdict.
func (g *Gate) reject(format string, args ...interface{}) error {
	reason := fmt.Sprintf(format, args...)
	g.logger.Errorf("%s", reason)
	return RejectionError{Reason: reason}
}
