package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

type Producer interface {
	SendDispatch(ctx context.Context, topic string, message *DispatchMessage) error
	Close() error
}

// DispatchMessage asks the worker to execute exactly one task. Delivery is
// at-least-once; the worker's claim update makes duplicates harmless.
type DispatchMessage struct {
	TaskID  string `json:"task_id"`
	BatchID string `json:"batch_id"`
	TraceID string `json:"trace_id"`
}

type producer struct {
	producer sarama.SyncProducer
}

func NewProducer(brokers []string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &producer{producer: p}, nil
}

func (p *producer) SendDispatch(ctx context.Context, topic string, message *DispatchMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		// Key by batch so one batch's dispatches stay ordered on one partition.
		Key:   sarama.StringEncoder(message.BatchID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}
