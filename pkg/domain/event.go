package domain

import "time"

// Event is a studio meetup, track day or show.
type Event struct {
	ID                   int64      `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	EventType            string     `json:"event_type,omitempty"`
	Location             string     `json:"location,omitempty"`
	EventDate            time.Time  `json:"event_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	MaxParticipants      *int       `json:"max_participants,omitempty"`
	ImageURL             *string    `json:"image_url,omitempty"`
	IsActive             bool       `json:"is_active"`
	ParticipantsCount    int        `json:"participants_count"`
	LikesCount           int        `json:"likes_count"`
	IsLiked              bool       `json:"is_liked,omitempty"`
	IsRegistrationOpen   bool       `json:"is_registration_open"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Upcoming reports whether the event has not started yet at now.
func (e Event) Upcoming(now time.Time) bool {
	return e.EventDate.After(now)
}

// EventRegistration records a user's sign-up for an event.
type EventRegistration struct {
	ID          int64     `json:"id"`
	Event       int64     `json:"event"`
	User        *User     `json:"user,omitempty"`
	IsAttending bool      `json:"is_attending"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
}
