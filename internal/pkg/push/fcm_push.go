package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMNotifier 通过 FCM topic 推送，客户 App 订阅 customer_<id>
type FCMNotifier struct {
	client *messaging.Client
}

func NewFCMNotifier(ctx context.Context, credentialsFile string) (*FCMNotifier, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("fcm credentials file is not configured")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMNotifier{client: client}, nil
}

// Topic 客户订阅的主题名
func Topic(customerID string) string {
	return "customer_" + customerID
}

func (n *FCMNotifier) NotifyMealRedeemed(ctx context.Context, event MealEvent) error {
	title, body, data := content(event)
	msg := &messaging.Message{
		Topic:        Topic(event.CustomerID),
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
		Android:      &messaging.AndroidConfig{Priority: "high"},
	}

	if _, err := n.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
