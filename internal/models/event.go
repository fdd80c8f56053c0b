package models

// Account event types published to the event stream.
const (
	EventUserRegistered        = "user.registered"
	EventUserLoggedIn          = "user.logged_in"
	EventUserLoggedOut         = "user.logged_out"
	EventUserPasswordChanged   = "user.password_changed"
	EventUserProfileUpdated    = "user.profile_updated"
	EventUserAvatarUpdated     = "user.avatar_updated"
	EventUserCoverImageUpdated = "user.cover_image_updated"
)

// AccountEvent describes a state change of an account.
type AccountEvent struct {
	EventID   string `json:"event_id"`  // Unique identifier of the event
	Timestamp int64  `json:"timestamp"` // Unix timestamp (seconds) when the change happened
	UserID    string `json:"user_id"`   // Account the event is about
	Type      string `json:"type"`      // One of the Event* constants
}
