package model

import "time"

// DateLayout is the calendar-date format used for Event.Date. Dates are kept
// as plain strings so that equality filtering matches what the user picked,
// with no timezone shifting.
const DateLayout = "2006-01-02"

// Event is a single campus event as stored in the events collection.
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title" validate:"required,min=2"`
	Description  string    `json:"description" validate:"required"`
	Date         string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string    `json:"time" validate:"required"`
	Location     string    `json:"location" validate:"required"`
	Department   string    `json:"department" validate:"required"`
	Club         string    `json:"club" validate:"required"`
	Tags         []string  `json:"tags"`
	Attendees    int       `json:"attendees" validate:"min=0"`
	MaxAttendees *int      `json:"maxAttendees,omitempty" validate:"omitempty,min=1,max=10000"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// EventUpdate carries a partial set of fields for an event update. Nil fields
// are left untouched on the stored event.
type EventUpdate struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Date         *string   `json:"date"`
	Time         *string   `json:"time"`
	Location     *string   `json:"location"`
	Department   *string   `json:"department"`
	Club         *string   `json:"club"`
	Tags         *[]string `json:"tags"`
	Attendees    *int      `json:"attendees"`
	MaxAttendees *int      `json:"maxAttendees"`
}

// Apply merges the non-nil fields of the update into the event.
func (u EventUpdate) Apply(e *Event) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.Time != nil {
		e.Time = *u.Time
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Department != nil {
		e.Department = *u.Department
	}
	if u.Club != nil {
		e.Club = *u.Club
	}
	if u.Tags != nil {
		e.Tags = *u.Tags
	}
	if u.Attendees != nil {
		e.Attendees = *u.Attendees
	}
	if u.MaxAttendees != nil {
		e.MaxAttendees = u.MaxAttendees
	}
}
