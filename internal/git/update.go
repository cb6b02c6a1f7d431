package git

import (
	"fmt"
	"strings"
)

// UpdateKind describes what a proposed reference update does to the ref.
type UpdateKind int

const (
	// UpdateKindCreate is the creation of a previously absent ref.
	UpdateKindCreate UpdateKind = iota
	// UpdateKindUpdate moves an existing ref to a new target.
	UpdateKindUpdate
	// UpdateKindDelete removes an existing ref.
	UpdateKindDelete
)

// Update is one proposed reference update as received on the hook's
// standard input: the previous target, the proposed target, and the ref.
type Update struct {
	OldOID ObjectID
	NewOID ObjectID
	Ref    ReferenceName
}

// ParseUpdate parses a single "<old> <new> <ref>" triple. Trailing
// newlines have to be stripped by the caller.
func ParseUpdate(line string) (Update, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 || fields[2] == "" {
		return Update{}, fmt.Errorf("expected \"<old> <new> <ref>\", got %q", line)
	}

	oldOID, err := NewObjectID(fields[0])
	if err != nil {
		return Update{}, fmt.Errorf("old value: %w", err)
	}

	newOID, err := NewObjectID(fields[1])
	if err != nil {
		return Update{}, fmt.Errorf("new value: %w", err)
	}

	update := Update{OldOID: oldOID, NewOID: newOID, Ref: ReferenceName(fields[2])}
	if oldOID.IsZero() && newOID.IsZero() {
		return Update{}, fmt.Errorf("update of %q has neither old nor new value", fields[2])
	}

	return update, nil
}

// Kind derives the update kind from the zero-ness of both object IDs.
func (u Update) Kind() UpdateKind {
	switch {
	case u.OldOID.IsZero():
		return UpdateKindCreate
	case u.NewOID.IsZero():
		return UpdateKindDelete
	default:
		return UpdateKindUpdate
	}
}
