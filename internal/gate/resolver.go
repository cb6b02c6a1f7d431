package gate

import (
	"gitlab.com/gitlab-org/refgate/internal/gpg"
	"gitlab.com/gitlab-org/refgate/internal/log"
)

// KeyLister is the key lookup surface of the crypto backend.
type KeyLister interface {
	KeysByID(id string) []gpg.Key
}

// Resolver maps a key identifier reported by signature verification to an
// authorized collaborator identity.
type Resolver struct {
	keys          KeyLister
	collaborators *Collaborators
	logger        *log.HookLogger
}

// NewResolver returns a Resolver using the given backend and allow-list.
func NewResolver(keys KeyLister, collaborators *Collaborators, logger *log.HookLogger) *Resolver {
	return &Resolver{keys: keys, collaborators: collaborators, logger: logger}
}

// Resolve maps a fingerprint or abbreviated key ID to a collaborator
// identity. The id has to resolve to exactly one key of the backend:
// short IDs are not collision resistant, so any ambiguity counts as
// unauthorized. Allow-list membership is decided on the backend-reported
// full fingerprint, never on the queried id.
func (r *Resolver) Resolve(id string) (string, bool) {
	matches := r.keys.KeysByID(id)
	switch len(matches) {
	case 0:
		r.logger.Printf("Key %s not in allowed list.", id)
		return "", false
	case 1:
		identity, ok := r.collaborators.IdentityByFingerprint(matches[0].Fingerprint)
		return identity, ok
	default:
		r.logger.Printf("Multiple keys matched short ID %s.", id)
		return "", false
	}
}
