package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Dhyanvj/BuddyUp/store"
)

const fcmEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCMSink pushes directly to Firebase Cloud Messaging, one request per
// registered device token. Users who disabled notifications or have no
// tokens are skipped silently.
type FCMSink struct {
	store     store.Store
	serverKey string
	client    *http.Client
}

func NewFCMSink(st store.Store, serverKey string) *FCMSink {
	return &FCMSink{
		store:     st,
		serverKey: serverKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *FCMSink) Push(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.AllowsNotifications != nil && !*user.AllowsNotifications {
		return nil
	}
	if len(user.PushTokens) == 0 {
		return nil
	}
	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return fmt.Errorf("unmarshaling push tokens: %w", err)
	}

	var lastErr error
	for _, token := range tokens {
		if err := s.send(ctx, token, title, body, data); err != nil {
			log.Printf("fcm: push to token of user %s: %v", userID, err)
			lastErr = err
		}
	}
	return lastErr
}

func (s *FCMSink) send(ctx context.Context, token, title, body string, data map[string]string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"to":           token,
		"notification": map[string]string{"title": title, "body": body, "sound": "default"},
		"data":         data,
		"priority":     "high",
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fcmEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fcm status %d", resp.StatusCode)
	}
	return nil
}

// KafkaSink hands notifications to a broker topic; a downstream consumer
// owns device delivery, token management and badge counts.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

type pushEnvelope struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

func (s *KafkaSink) Push(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error {
	value, err := json.Marshal(pushEnvelope{
		UserID: userID.String(),
		Title:  title,
		Body:   body,
		Data:   data,
	})
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID.String()),
		Value: value,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// LogSink is the development sink.
type LogSink struct{}

func (LogSink) Push(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error {
	log.Printf("push (dev): user=%s title=%q body=%q", userID, title, body)
	return nil
}
