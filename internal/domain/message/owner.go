package message

// OwnerKind tags the two eras of message ownership: records written after
// authentication landed carry an author id; older records only a name.
type OwnerKind int

const (
	OwnerIdentified OwnerKind = iota
	OwnerLegacyNamed
)

// Owner is the tagged ownership variant used for edit/delete authorization.
type Owner struct {
	Kind   OwnerKind
	UserID string
	Name   string
}

// Owner resolves the message's ownership variant.
func (m *Message) Owner() Owner {
	if m.AuthorID != nil && *m.AuthorID != "" {
		return Owner{Kind: OwnerIdentified, UserID: *m.AuthorID}
	}
	return Owner{Kind: OwnerLegacyNamed, Name: m.AuthorDisplayName}
}

// Allows reports whether the caller may edit or delete the owned message.
// Identified ownership matches on user id; legacy ownership matches the
// stored display name against a caller-supplied legacy name.
func (o Owner) Allows(callerID, legacyName string) bool {
	switch o.Kind {
	case OwnerIdentified:
		return callerID != "" && callerID == o.UserID
	case OwnerLegacyNamed:
		return legacyName != "" && legacyName == o.Name
	}
	return false
}
