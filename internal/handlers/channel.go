package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/sbilibin2017/gw-user-accounts/internal/response"
)

// ChannelProfileGetter returns channel pages.
type ChannelProfileGetter interface {
	GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error)
}

// Subscriber manages subscriptions of the current user.
type Subscriber interface {
	Subscribe(ctx context.Context, subscriberID uuid.UUID, username string) error
	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, username string) error
}

// SubscriptionResponse reports the viewer's subscription state.
// swagger:model SubscriptionResponse
type SubscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}

// NewChannelProfileHandler returns an HTTP handler for a channel page.
// @Summary Channel profile
// @Description Public profile of a user with subscriber counts
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param username path string true "Channel username"
// @Success 200 {object} response.Envelope{data=models.ChannelProfile} "Channel fetched"
// @Failure 404 {object} response.ErrorEnvelope "channel does not exist"
// @Router /c/{username} [get]
func NewChannelProfileHandler(svc ChannelProfileGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, err := currentUserID(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		profile, err := svc.GetChannelProfile(r.Context(), chi.URLParam(r, "username"), viewerID)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusOK, profile, "User channel fetched successfully")
	}
}

// NewSubscribeHandler returns an HTTP handler that subscribes to a channel.
// @Summary Subscribe to a channel
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param username path string true "Channel username"
// @Success 200 {object} response.Envelope{data=handlers.SubscriptionResponse} "Subscribed"
// @Failure 400 {object} response.ErrorEnvelope "Cannot subscribe to own channel"
// @Failure 404 {object} response.ErrorEnvelope "channel does not exist"
// @Router /c/{username}/subscription [post]
func NewSubscribeHandler(svc Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		if err := svc.Subscribe(r.Context(), userID, chi.URLParam(r, "username")); err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusOK, SubscriptionResponse{Subscribed: true}, "Subscribed successfully")
	}
}

// NewUnsubscribeHandler returns an HTTP handler that unsubscribes from a channel.
// @Summary Unsubscribe from a channel
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param username path string true "Channel username"
// @Success 200 {object} response.Envelope{data=handlers.SubscriptionResponse} "Unsubscribed"
// @Failure 404 {object} response.ErrorEnvelope "channel does not exist"
// @Router /c/{username}/subscription [delete]
func NewUnsubscribeHandler(svc Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		if err := svc.Unsubscribe(r.Context(), userID, chi.URLParam(r, "username")); err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusOK, SubscriptionResponse{Subscribed: false}, "Unsubscribed successfully")
	}
}
