package messaging

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"atelier-commission/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// vendor error code for "user already exists"; a second CreateUser with the
// same id is treated as success.
const codeUserAlreadyExists = 400202

// GroupChannel messaging-side chat channel.
type GroupChannel struct {
	ChannelURL string `json:"channel_url"`
	Name       string `json:"name"`
}

// CreateChannelParams inputs for a new group channel. ChannelKey becomes the
// channel's external key (the request's order id), which makes creation
// idempotent: retries address the same channel.
type CreateChannelParams struct {
	UserIDs     []string
	Name        string
	CoverURL    string
	ChannelKey  string
	OperatorIDs []string
	IsDistinct  bool
	Metadata    map[string]string
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Client talks to the chat provider's REST API. All failures are tagged
// domain.ErrExternalService except GetGroupChannel's 404, which is
// domain.ErrNotFound so the saga can branch to creation.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiToken string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Api-Token", apiToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, logger: logger}
}

// CreateUser ensures a messaging identity exists for the platform user.
// Creating an id twice is a no-op, not an error.
func (c *Client) CreateUser(ctx context.Context, userID, nickname, avatarURL string) error {
	var apiErr apiError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"user_id":     userID,
			"nickname":    nickname,
			"profile_url": avatarURL,
		}).
		SetError(&apiErr).
		Post("/v3/users")
	if err != nil {
		return fmt.Errorf("failed to create messaging user: %w: %w", err, domain.ErrExternalService)
	}
	if resp.IsError() {
		if apiErr.Code == codeUserAlreadyExists {
			c.logger.Debug("Messaging user already exists", zap.String("user_id", userID))
			return nil
		}
		c.logger.Error("Messaging API rejected user creation",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return fmt.Errorf("messaging user creation failed (%d %d): %w",
			resp.StatusCode(), apiErr.Code, domain.ErrExternalService)
	}
	return nil
}

// GetGroupChannel looks a channel up by its external key. Returns
// domain.ErrNotFound when no channel has that key.
func (c *Client) GetGroupChannel(ctx context.Context, channelKey string) (*GroupChannel, error) {
	var (
		channel GroupChannel
		apiErr  apiError
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&channel).
		SetError(&apiErr).
		Get("/v3/group_channels/" + channelKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get group channel: %w: %w", err, domain.ErrExternalService)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("group channel %s: %w", channelKey, domain.ErrNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("group channel lookup failed (%d %d): %w",
			resp.StatusCode(), apiErr.Code, domain.ErrExternalService)
	}
	return &channel, nil
}

// CreateGroupChannel creates a private group channel under the given key.
// Channels are non-discoverable and never deduplicated by participants
// (is_distinct false): each accepted request gets its own channel.
func (c *Client) CreateGroupChannel(ctx context.Context, params CreateChannelParams) (*GroupChannel, error) {
	var (
		channel GroupChannel
		apiErr  apiError
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"user_ids":     params.UserIDs,
			"name":         params.Name,
			"cover_url":    params.CoverURL,
			"channel_url":  params.ChannelKey,
			"operator_ids": params.OperatorIDs,
			"is_distinct":  params.IsDistinct,
			"is_public":    false,
			"data":         params.Metadata,
		}).
		SetResult(&channel).
		SetError(&apiErr).
		Post("/v3/group_channels")
	if err != nil {
		return nil, fmt.Errorf("failed to create group channel: %w: %w", err, domain.ErrExternalService)
	}
	if resp.IsError() {
		c.logger.Error("Messaging API rejected channel creation",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return nil, fmt.Errorf("group channel creation failed (%d %d): %w",
			resp.StatusCode(), apiErr.Code, domain.ErrExternalService)
	}

	c.logger.Info("Created group channel",
		zap.String("channel_url", channel.ChannelURL),
		zap.String("channel_key", params.ChannelKey),
	)
	return &channel, nil
}
