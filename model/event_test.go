package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestEventUpdate_ApplyMergesOnlySetFields(t *testing.T) {
	created := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	event := &Event{
		ID:          "abc",
		Title:       "AI Workshop",
		Description: "Original description",
		Date:        "2025-03-01",
		Time:        "14:00",
		Location:    "Lab 3",
		Department:  "Computer Science",
		Club:        "GDG",
		Tags:        []string{"technology"},
		Attendees:   5,
		CreatedAt:   created,
	}

	upd := EventUpdate{
		Title:        strPtr("AI Workshop v2"),
		Attendees:    intPtr(12),
		MaxAttendees: intPtr(100),
	}
	upd.Apply(event)

	assert.Equal(t, "AI Workshop v2", event.Title)
	assert.Equal(t, 12, event.Attendees)
	assert.Equal(t, 100, *event.MaxAttendees)

	// untouched fields survive
	assert.Equal(t, "abc", event.ID)
	assert.Equal(t, "Original description", event.Description)
	assert.Equal(t, "2025-03-01", event.Date)
	assert.Equal(t, []string{"technology"}, event.Tags)
	assert.Equal(t, created, event.CreatedAt)
}

func TestEventUpdate_ApplyDistinguishesEmptyFromAbsentTags(t *testing.T) {
	event := &Event{Tags: []string{"technology"}}

	EventUpdate{}.Apply(event)
	assert.Equal(t, []string{"technology"}, event.Tags, "absent tags leave the set alone")

	empty := []string{}
	EventUpdate{Tags: &empty}.Apply(event)
	assert.Empty(t, event.Tags, "an explicit empty set clears the tags")
}

func TestEventUpdate_ZeroValueIsNoOp(t *testing.T) {
	original := Event{Title: "AI Workshop", Attendees: 3}
	event := original

	EventUpdate{}.Apply(&event)

	assert.Equal(t, original, event)
}
