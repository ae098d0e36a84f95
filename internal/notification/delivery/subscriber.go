package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"ccce-notify/internal/notification/usecase"
	"ccce-notify/pkg/logger"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Document-creation messages published by the upstream stores
const (
	MessageEventCreated        = "event.created"
	MessageNotificationCreated = "notification.created"
)

// CreationMessage is the Pub/Sub payload announcing a new event or notification
type CreationMessage struct {
	Type           string `json:"type"`
	EventID        string `json:"eventId,omitempty"`
	NotificationID string `json:"notificationId,omitempty"`
}

// Subscriber turns creation messages into engine calls
type Subscriber struct {
	pubsubClient        *pubsub.Client
	subName             string
	notificationUsecase usecase.NotificationUsecase
	log                 zerolog.Logger
}

func NewSubscriber(ctx context.Context, projectID, subName, credentialsFile string, notificationUsecase usecase.NotificationUsecase) (*Subscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Subscriber{
		pubsubClient:        client,
		subName:             subName,
		notificationUsecase: notificationUsecase,
		log:                 logger.Component("pubsub"),
	}, nil
}

// Start receives until ctx is cancelled. Every message is acked; failures are
// only logged because the periodic sweep picks up anything left pending.
func (s *Subscriber) Start(ctx context.Context) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("subscription", s.subName).Msg("error checking subscription existence")
		return
	}
	if !exists {
		s.log.Error().Str("subscription", s.subName).Msg("subscription does not exist, creation triggers disabled")
		return
	}

	s.log.Info().Str("subscription", s.subName).Msg("listening for creation messages")
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := s.handleMessage(ctx, msg.Data); err != nil {
			s.log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to handle message")
		}
		msg.Ack()
	})
	if err != nil {
		s.log.Error().Err(err).Msg("error receiving messages")
	}
}

func (s *Subscriber) Close() error {
	return s.pubsubClient.Close()
}

func (s *Subscriber) handleMessage(ctx context.Context, data []byte) error {
	return HandleCreationMessage(ctx, s.notificationUsecase, data, s.log)
}

// HandleCreationMessage decodes one message and runs the matching trigger
func HandleCreationMessage(ctx context.Context, uc usecase.NotificationUsecase, data []byte, log zerolog.Logger) error {
	var msg CreationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	switch msg.Type {
	case MessageEventCreated:
		if msg.EventID == "" {
			return fmt.Errorf("%s message without eventId", msg.Type)
		}
		n, err := uc.HandleEventCreated(ctx, msg.EventID)
		if err != nil {
			return fmt.Errorf("schedule reminder for event %s: %w", msg.EventID, err)
		}
		if n != nil {
			log.Info().Str("event_id", msg.EventID).Str("notification_id", n.ID).Msg("reminder scheduled")
		}
		return nil
	case MessageNotificationCreated:
		if msg.NotificationID == "" {
			return fmt.Errorf("%s message without notificationId", msg.Type)
		}
		result, err := uc.HandleNotificationCreated(ctx, msg.NotificationID)
		if err != nil {
			return fmt.Errorf("handle notification %s: %w", msg.NotificationID, err)
		}
		log.Info().Str("notification_id", msg.NotificationID).Str("status", string(result.Status)).Bool("skipped", result.Skipped).Msg("notification handled")
		return nil
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}
