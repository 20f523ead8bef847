package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roomchat/internal/models"

	"github.com/IBM/sarama"
)

func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner // one partition per room keeps room order
	config.Version = sarama.V2_0_0_0
	config.ClientID = "roomchat"

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

// MessageEvent is the record published for every persisted message.
type MessageEvent struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	Room        string    `json:"room,omitempty"`
	RecipientID string    `json:"recipientId,omitempty"`
	IsPrivate   bool      `json:"isPrivate"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *KafkaPublisher) PublishMessage(ctx context.Context, msg *models.Message) error {
	value, err := json.Marshal(MessageEvent{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		Room:        msg.RoomName(),
		RecipientID: msg.Recipient(),
		IsPrivate:   msg.IsPrivate,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(partitionKey(msg)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message %s: %w", msg.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func partitionKey(msg *models.Message) string {
	if msg.IsPrivate {
		return "dm:" + msg.Recipient()
	}
	return "room:" + msg.RoomName()
}
