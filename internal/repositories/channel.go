package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
)

// ChannelReadRepository answers channel-page queries.
type ChannelReadRepository struct {
	db *sqlx.DB
}

func NewChannelReadRepository(db *sqlx.DB) *ChannelReadRepository {
	return &ChannelReadRepository{db: db}
}

// GetProfile returns the channel identified by username, with IsSubscribed
// computed for viewerID. Counts are left zero; see GetCounts.
// A missing channel is (nil, nil).
func (r *ChannelReadRepository) GetProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	const query = `
		SELECT u.user_id, u.username, u.full_name, u.email, u.avatar_url,
		       COALESCE(u.cover_image_url, '') AS cover_image_url,
		       EXISTS (
		           SELECT 1 FROM subscriptions s
		           WHERE s.channel_id = u.user_id AND s.subscriber_id = $2
		       ) AS is_subscribed
		FROM users u
		WHERE u.username = $1
	`

	var profile models.ChannelProfile
	err := r.db.GetContext(ctx, &profile, query, username, viewerID)
	logQuery(query, []any{username, viewerID}, profile.ID, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetCounts returns how many accounts subscribe to channelID and how many
// channels channelID subscribes to.
func (r *ChannelReadRepository) GetCounts(ctx context.Context, channelID uuid.UUID) (models.ChannelCounts, error) {
	const query = `
		SELECT
		    (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1)    AS subscribers_count,
		    (SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1) AS subscribed_to_count
	`

	var row struct {
		SubscribersCount  int64 `db:"subscribers_count"`
		SubscribedToCount int64 `db:"subscribed_to_count"`
	}
	err := r.db.GetContext(ctx, &row, query, channelID)
	logQuery(query, []any{channelID}, row, err)

	if err != nil {
		return models.ChannelCounts{}, err
	}
	return models.ChannelCounts{
		SubscribersCount:  row.SubscribersCount,
		SubscribedToCount: row.SubscribedToCount,
	}, nil
}

// SubscriptionWriteRepository records who subscribes to which channel.
type SubscriptionWriteRepository struct {
	db       *sqlx.DB
	txGetter TxGetter
}

func NewSubscriptionWriteRepository(db *sqlx.DB, txGetter TxGetter) *SubscriptionWriteRepository {
	return &SubscriptionWriteRepository{db: db, txGetter: txGetter}
}

// Subscribe is idempotent: subscribing twice keeps one row.
func (r *SubscriptionWriteRepository) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const query = `
		INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (subscriber_id, channel_id) DO NOTHING
	`

	res, err := executor(ctx, r.db, r.txGetter).ExecContext(ctx, query, subscriberID, channelID)
	logQuery(query, []any{subscriberID, channelID}, affected(res), err)

	return err
}

// Unsubscribe is idempotent: removing a missing subscription is not an error.
func (r *SubscriptionWriteRepository) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const query = `
		DELETE FROM subscriptions
		WHERE subscriber_id = $1 AND channel_id = $2
	`

	res, err := executor(ctx, r.db, r.txGetter).ExecContext(ctx, query, subscriberID, channelID)
	logQuery(query, []any{subscriberID, channelID}, affected(res), err)

	return err
}
