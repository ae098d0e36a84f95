package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// MaxMulticastTokens is the hard limit of tokens FCM accepts per multicast call
const MaxMulticastTokens = 500

// NewApp initializes a Firebase app. An empty credentials file falls back to
// application default credentials.
func NewApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
}

// NewClient creates a messaging client from an initialized Firebase app
func NewClient(ctx context.Context, app *firebase.App) (*Client, error) {
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Info().Str("component", "fcm").Msg("client initialized")
	return &Client{
		messagingClient: messagingClient,
	}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title    string
	Body     string
	ImageURL string            // Optional notification image
	Data     map[string]string // Custom data payload
}

// SendResult is the outcome for one token of a multicast call
type SendResult struct {
	Success bool
	Err     error
}

// BatchResult mirrors the FCM batch response. Responses is aligned by
// position with the tokens that were submitted.
type BatchResult struct {
	SuccessCount int
	FailureCount int
	Responses    []SendResult
}

// SendMulticast sends one notification to up to MaxMulticastTokens tokens.
// A non-nil error means the whole call failed and no per-token outcome is known.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, notification NotificationData) (*BatchResult, error) {
	if len(tokens) == 0 {
		return &BatchResult{}, nil
	}
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("multicast accepts at most %d tokens, got %d", MaxMulticastTokens, len(tokens))
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title:    notification.Title,
			Body:     notification.Body,
			ImageURL: notification.ImageURL,
		},
		Data: notification.Data,
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	result := &BatchResult{
		SuccessCount: response.SuccessCount,
		FailureCount: response.FailureCount,
		Responses:    make([]SendResult, len(response.Responses)),
	}
	for i, resp := range response.Responses {
		result.Responses[i] = SendResult{Success: resp.Success, Err: resp.Error}
		if !resp.Success {
			log.Debug().Str("component", "fcm").Str("token", redact(tokens[i])).Err(resp.Error).Msg("token rejected")
		}
	}

	log.Debug().Str("component", "fcm").
		Int("success", response.SuccessCount).
		Int("failure", response.FailureCount).
		Msg("multicast sent")
	return result, nil
}

func redact(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
