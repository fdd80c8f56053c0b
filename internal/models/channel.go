package models

import "github.com/google/uuid"

// ChannelProfile is the public channel view of an account, with subscription
// counts and whether the viewer subscribes to it.
// swagger:model ChannelProfile
type ChannelProfile struct {
	ID                uuid.UUID `json:"id" db:"user_id"`
	Username          string    `json:"username" db:"username"`
	FullName          string    `json:"fullName" db:"full_name"`
	Email             string    `json:"email" db:"email"`
	AvatarURL         string    `json:"avatar" db:"avatar_url"`
	CoverImageURL     string    `json:"coverImage" db:"cover_image_url"`
	SubscribersCount  int64     `json:"subscribersCount" db:"subscribers_count"`
	SubscribedToCount int64     `json:"channelsSubscribedToCount" db:"subscribed_to_count"`
	IsSubscribed      bool      `json:"isSubscribed" db:"is_subscribed"`
}

// ChannelCounts are the cacheable parts of a channel profile.
type ChannelCounts struct {
	SubscribersCount  int64 `json:"subscribers"`
	SubscribedToCount int64 `json:"subscribed_to"`
}
