package gate

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// CollaboratorsFile is the name of the allow-list document inside the
// repository's private metadata directory.
const CollaboratorsFile = "collaborators.yaml"

var fingerprintRegex = regexp.MustCompile(`\A[0-9a-fA-F]{40}\z`)

// Collaborators is the allow-list of identities authorized to sign
// updates, indexed by the canonical uppercase fingerprint of their key.
type Collaborators struct {
	identities map[string]string
}

// LoadCollaborators reads the allow-list from a YAML mapping of identity
// to 40-hex key fingerprint. Fingerprints are stored canonically in
// uppercase; comparisons against them are case-insensitive. An unreadable
// or malformed allow-list is fatal for the whole push, so the error here
// is deliberately specific.
func LoadCollaborators(path string) (*Collaborators, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading collaborators file: %w", err)
	}

	var mapping map[string]string
	if err := yaml.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parsing collaborators file %q: %w", path, err)
	}

	collaborators, err := NewCollaborators(mapping)
	if err != nil {
		return nil, fmt.Errorf("collaborators file %q: %w", path, err)
	}

	return collaborators, nil
}

// NewCollaborators builds an allow-list from identity to fingerprint
// pairs.
func NewCollaborators(mapping map[string]string) (*Collaborators, error) {
	collaborators := &Collaborators{identities: make(map[string]string, len(mapping))}
	for identity, fingerprint := range mapping {
		if !fingerprintRegex.MatchString(fingerprint) {
			return nil, fmt.Errorf("collaborator %q has malformed fingerprint %q", identity, fingerprint)
		}
		collaborators.identities[strings.ToUpper(fingerprint)] = identity
	}

	return collaborators, nil
}

// IdentityByFingerprint resolves a full key fingerprint to the identity
// it authorizes.
func (c *Collaborators) IdentityByFingerprint(fingerprint string) (string, bool) {
	identity, ok := c.identities[strings.ToUpper(fingerprint)]
	return identity, ok
}

// Count returns the number of allow-listed collaborators.
func (c *Collaborators) Count() int {
	return len(c.identities)
}
