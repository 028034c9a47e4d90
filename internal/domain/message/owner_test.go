package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOwnerIdentified(t *testing.T) {
	authorID := "u1"
	m := &Message{ID: "m1", AuthorID: &authorID, AuthorDisplayName: "Alice"}

	o := m.Owner()
	assert.Equal(t, OwnerIdentified, o.Kind)

	assert.True(t, o.Allows("u1", ""))
	assert.False(t, o.Allows("u2", ""))
	// A matching display name never unlocks an identified record.
	assert.False(t, o.Allows("", "Alice"))
	assert.False(t, o.Allows("", ""))
}

func TestOwnerLegacyNamed(t *testing.T) {
	m := &Message{ID: "m1", AuthorDisplayName: "old-timer"}

	o := m.Owner()
	assert.Equal(t, OwnerLegacyNamed, o.Kind)

	assert.True(t, o.Allows("", "old-timer"))
	assert.True(t, o.Allows("u1", "old-timer"))
	assert.False(t, o.Allows("u1", ""))
	assert.False(t, o.Allows("", "someone-else"))
}

func TestOwnerEmptyAuthorIDIsLegacy(t *testing.T) {
	empty := ""
	m := &Message{ID: "m1", AuthorID: &empty, AuthorDisplayName: "old-timer"}
	assert.Equal(t, OwnerLegacyNamed, m.Owner().Kind)
}

func TestCloneIsDeep(t *testing.T) {
	authorID := "u1"
	editedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &Message{
		ID:       "m1",
		AuthorID: &authorID,
		EditedAt: &editedAt,
		Reactions: []Reaction{
			{Emoji: "👍", ReactorName: "bob"},
		},
		SeenBy:  []SeenEntry{{Username: "carol"}},
		ReplyTo: &ReplySnapshot{MessageID: "m0", Text: "quoted"},
	}

	c := m.Clone()
	*c.AuthorID = "u2"
	c.Reactions[0].Emoji = "👎"
	c.SeenBy[0].Username = "mallory"
	c.ReplyTo.Text = "rewritten"

	assert.Equal(t, "u1", *m.AuthorID)
	assert.Equal(t, "👍", m.Reactions[0].Emoji)
	assert.Equal(t, "carol", m.SeenBy[0].Username)
	assert.Equal(t, "quoted", m.ReplyTo.Text)
}

func TestSeenByViewer(t *testing.T) {
	uid := "u1"
	m := &Message{SeenBy: []SeenEntry{
		{UserID: &uid, Username: "Alice"},
		{Username: "legacy-bob"},
	}}

	assert.True(t, m.SeenByViewer("u1", ""))
	assert.True(t, m.SeenByViewer("", "Alice"))
	assert.True(t, m.SeenByViewer("u9", "legacy-bob"))
	assert.False(t, m.SeenByViewer("u9", "nobody"))
	assert.False(t, m.SeenByViewer("", ""))
}
