package gate

import (
	"context"
	"fmt"

	"gitlab.com/gitlab-org/refgate/internal/git"
	"gitlab.com/gitlab-org/refgate/internal/git/catfile"
)

// ObjectStore is the object access surface of the repository.
type ObjectStore interface {
	Info(ctx context.Context, oid git.ObjectID) (catfile.ObjectInfo, error)
	Commit(ctx context.Context, oid git.ObjectID) (*git.Commit, error)
	CommitSignature(ctx context.Context, oid git.ObjectID) ([]byte, []byte, error)
	TagSignature(ctx context.Context, oid git.ObjectID) ([]byte, []byte, error)
}

// CryptoBackend verifies detached signatures against the local keyring.
type CryptoBackend interface {
	KeyLister
	VerifyDetached(signature, payload []byte) (string, error)
}

// Verifier checks the detached signature carried by a commit, merge or
// annotated tag object. It decides cryptographic validity only; whether
// the signer is authorized is the resolver's concern.
type Verifier struct {
	objects ObjectStore
	crypto  CryptoBackend
}

// NewVerifier returns a Verifier using the given object store and crypto
// backend.
func NewVerifier(objects ObjectStore, crypto CryptoBackend) *Verifier {
	return &Verifier{objects: objects, crypto: crypto}
}

// Verify extracts the detached signature of the object and checks it over
// the canonical payload. It reports validity and, for valid signatures,
// the signer's full fingerprint. An unsigned object is simply invalid;
// only failures to read the object at all surface as errors.
func (v *Verifier) Verify(ctx context.Context, oid git.ObjectID, kind git.ObjectKind) (bool, string, error) {
	var signature, payload []byte
	var err error

	switch kind {
	case git.ObjectKindCommit, git.ObjectKindMerge:
		signature, payload, err = v.objects.CommitSignature(ctx, oid)
	case git.ObjectKindTag:
		signature, payload, err = v.objects.TagSignature(ctx, oid)
	default:
		return false, "", fmt.Errorf("cannot verify signature of %s object %s", kind, oid)
	}
	if err != nil {
		return false, "", err
	}

	if len(signature) == 0 || len(payload) == 0 {
		return false, "", nil
	}

	fingerprint, err := v.crypto.VerifyDetached(signature, payload)
	if err != nil {
		return false, "", nil
	}

	return true, fingerprint, nil
}
