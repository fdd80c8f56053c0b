package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/sbilibin2017/gw-user-accounts/internal/repositories"
)

// AccountStore is the part of the credential store account operations use.
type AccountStore interface {
	CheckAvailable(ctx context.Context, username, email string) error
	Create(ctx context.Context, account models.NewAccount) (*models.User, error)
	FindByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, coverImageURL string) (*models.User, error)
}

// MediaUploader stores a local file and returns its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// ChannelReader reads channel pages.
type ChannelReader interface {
	GetProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error)
	GetCounts(ctx context.Context, channelID uuid.UUID) (models.ChannelCounts, error)
}

// SubscriptionWriter records subscriptions.
type SubscriptionWriter interface {
	Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
	Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
}

// ChannelCountsCache caches subscription counts per channel.
type ChannelCountsCache interface {
	GetCounts(ctx context.Context, channelID uuid.UUID) (models.ChannelCounts, error)
	SetCounts(ctx context.Context, channelID uuid.UUID, counts models.ChannelCounts) error
	Invalidate(ctx context.Context, channelIDs ...uuid.UUID) error
}

// AccountService implements registration, profile and channel operations.
type AccountService struct {
	store         AccountStore
	media         MediaUploader
	channels      ChannelReader
	subscriptions SubscriptionWriter
	cache         ChannelCountsCache
	events        *EventPublisher
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	store AccountStore,
	media MediaUploader,
	channels ChannelReader,
	subscriptions SubscriptionWriter,
	cache ChannelCountsCache,
	events *EventPublisher,
) *AccountService {
	return &AccountService{
		store:         store,
		media:         media,
		channels:      channels,
		subscriptions: subscriptions,
		cache:         cache,
		events:        events,
	}
}

// Register validates the input, checks uniqueness, uploads the avatar and
// the optional cover image, then creates the account. Nothing is stored if
// any step before the insert fails.
func (s *AccountService) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = normalizeIdentifier(in.Username)
	in.Email = normalizeIdentifier(in.Email)

	if err := validateInput(in); err != nil {
		return nil, err
	}

	if err := s.store.CheckAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	avatarURL, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil || avatarURL == "" {
		logger.Log.Errorw("failed to upload avatar", "username", in.Username, "error", err)
		return nil, apperrors.Internal(err, "Avatar file upload failed")
	}

	var coverImageURL *string
	if in.CoverImagePath != nil {
		url, err := s.media.Upload(ctx, *in.CoverImagePath)
		if err != nil {
			logger.Log.Warnw("failed to upload cover image, continuing without it", "username", in.Username, "error", err)
		} else if url != "" {
			coverImageURL = &url
		}
	}

	user, err := s.store.Create(ctx, models.NewAccount{
		Username:      in.Username,
		Email:         in.Email,
		FullName:      in.FullName,
		Password:      in.Password,
		AvatarURL:     avatarURL,
		CoverImageURL: coverImageURL,
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, user.ID, models.EventUserRegistered)
	return user, nil
}

// GetCurrentUser returns the public view of the authenticated account.
func (s *AccountService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User does not exist")
	}
	return user.Sanitize(), nil
}

// ChangePassword replaces the password after re-verifying the old one.
// The current refresh token stays valid.
func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, in models.ChangePasswordInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if err := s.store.ChangePassword(ctx, userID, in.OldPassword, in.NewPassword); err != nil {
		return err
	}
	s.events.Publish(ctx, userID, models.EventUserPasswordChanged)
	return nil
}

// UpdateProfile replaces full name and email.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, in models.UpdateProfileInput) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeIdentifier(in.Email)

	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.store.UpdateProfile(ctx, userID, in.FullName, in.Email)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, userID, models.EventUserProfileUpdated)
	return user, nil
}

// UpdateAvatar uploads the file at localPath and makes it the avatar.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error) {
	if localPath == "" {
		return nil, apperrors.Validation("Avatar file is missing", "avatar")
	}

	url, err := s.media.Upload(ctx, localPath)
	if err != nil || url == "" {
		logger.Log.Errorw("failed to upload avatar", "userID", userID, "error", err)
		return nil, apperrors.Internal(err, "Error while uploading avatar")
	}

	user, err := s.store.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, userID, models.EventUserAvatarUpdated)
	return user, nil
}

// UpdateCoverImage uploads the file at localPath and makes it the cover image.
func (s *AccountService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error) {
	if localPath == "" {
		return nil, apperrors.Validation("Cover image file is missing", "coverImage")
	}

	url, err := s.media.Upload(ctx, localPath)
	if err != nil || url == "" {
		logger.Log.Errorw("failed to upload cover image", "userID", userID, "error", err)
		return nil, apperrors.Internal(err, "Error while uploading cover image")
	}

	user, err := s.store.UpdateCoverImage(ctx, userID, url)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, userID, models.EventUserCoverImageUpdated)
	return user, nil
}

// GetChannelProfile returns the channel page of username as seen by viewerID.
func (s *AccountService) GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	profile, err := s.findChannel(ctx, username, viewerID)
	if err != nil {
		return nil, err
	}

	counts, err := s.channelCounts(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	profile.SubscribersCount = counts.SubscribersCount
	profile.SubscribedToCount = counts.SubscribedToCount

	return profile, nil
}

// Subscribe makes subscriberID a subscriber of the channel named username.
func (s *AccountService) Subscribe(ctx context.Context, subscriberID uuid.UUID, username string) error {
	channel, err := s.findChannel(ctx, username, subscriberID)
	if err != nil {
		return err
	}
	if channel.ID == subscriberID {
		return apperrors.Validation("You cannot subscribe to your own channel", "username")
	}

	if err := s.subscriptions.Subscribe(ctx, subscriberID, channel.ID); err != nil {
		logger.Log.Errorw("failed to subscribe", "subscriberID", subscriberID, "channelID", channel.ID, "error", err)
		return apperrors.Internal(err, "failed to subscribe")
	}
	s.invalidateCounts(ctx, subscriberID, channel.ID)
	return nil
}

// Unsubscribe removes the subscription if there is one.
func (s *AccountService) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, username string) error {
	channel, err := s.findChannel(ctx, username, subscriberID)
	if err != nil {
		return err
	}

	if err := s.subscriptions.Unsubscribe(ctx, subscriberID, channel.ID); err != nil {
		logger.Log.Errorw("failed to unsubscribe", "subscriberID", subscriberID, "channelID", channel.ID, "error", err)
		return apperrors.Internal(err, "failed to unsubscribe")
	}
	s.invalidateCounts(ctx, subscriberID, channel.ID)
	return nil
}

func (s *AccountService) findChannel(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	username = normalizeIdentifier(username)
	if username == "" {
		return nil, apperrors.Validation("username is missing", "username")
	}

	profile, err := s.channels.GetProfile(ctx, username, viewerID)
	if err != nil {
		logger.Log.Errorw("failed to get channel", "username", username, "error", err)
		return nil, apperrors.Internal(err, "failed to get channel")
	}
	if profile == nil {
		return nil, apperrors.NotFound("channel does not exist")
	}
	return profile, nil
}

// channelCounts reads through the cache. Cache failures only cost a query.
func (s *AccountService) channelCounts(ctx context.Context, channelID uuid.UUID) (models.ChannelCounts, error) {
	counts, err := s.cache.GetCounts(ctx, channelID)
	if err == nil {
		return counts, nil
	}
	if !errors.Is(err, repositories.ErrCacheMiss) {
		logger.Log.Warnw("failed to read channel counts from cache", "channelID", channelID, "error", err)
	}

	counts, err = s.channels.GetCounts(ctx, channelID)
	if err != nil {
		logger.Log.Errorw("failed to count subscriptions", "channelID", channelID, "error", err)
		return models.ChannelCounts{}, apperrors.Internal(err, "failed to get channel")
	}

	if err := s.cache.SetCounts(ctx, channelID, counts); err != nil {
		logger.Log.Warnw("failed to cache channel counts", "channelID", channelID, "error", err)
	}
	return counts, nil
}

func (s *AccountService) invalidateCounts(ctx context.Context, ids ...uuid.UUID) {
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		logger.Log.Warnw("failed to invalidate channel counts", "channelIDs", ids, "error", err)
	}
}
