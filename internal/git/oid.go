package git

import (
	"fmt"
	"regexp"
)

const (
	// ZeroOID is the special value that Git uses to signal a ref or object
	// does not exist, e.g. as the pre-state of a just-created ref.
	ZeroOID = ObjectID("0000000000000000000000000000000000000000")
)

var oidRegex = regexp.MustCompile(`\A[0-9a-fA-F]{40}\z`)

// ObjectID is a Git object identifier in its 40-character hexadecimal form.
type ObjectID string

// NewObjectID validates hex and returns it wrapped as an ObjectID.
func NewObjectID(hex string) (ObjectID, error) {
	if err := ValidateHex(hex); err != nil {
		return "", err
	}
	return ObjectID(hex), nil
}

// ValidateHex checks that hex is a well-formed object ID.
func ValidateHex(hex string) error {
	if !oidRegex.MatchString(hex) {
		return fmt.Errorf("invalid object ID: %q", hex)
	}
	return nil
}

// String returns the hexadecimal representation of the ObjectID.
func (oid ObjectID) String() string {
	return string(oid)
}

// IsZero reports whether the ObjectID is the all-zeroes sentinel.
func (oid ObjectID) IsZero() bool {
	return oid == ZeroOID
}
