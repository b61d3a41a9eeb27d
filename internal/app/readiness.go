package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
)

// ReadinessWaiter blocks startup until the page events topic is reachable.
// With no brokers configured there is nothing to wait for.
type ReadinessWaiter struct {
	brokers  []string
	topic    string
	interval time.Duration
}

func NewReadinessWaiter(brokers []string, topic string) *ReadinessWaiter {
	return &ReadinessWaiter{
		brokers:  brokers,
		topic:    topic,
		interval: 2 * time.Second,
	}
}

func (w *ReadinessWaiter) WaitForDependencies(ctx context.Context) error {
	if len(w.brokers) == 0 {
		slog.Info("Page events disabled, skipping Kafka readiness check")
		return nil
	}
	return w.waitForKafka(ctx)
}

func (w *ReadinessWaiter) waitForKafka(ctx context.Context) error {
	slog.Info("Waiting for Kafka...", "brokers", w.brokers, "topic", w.topic)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.checkKafka(); err != nil {
			slog.Warn("Kafka not ready yet", "error", err)
		} else {
			slog.Info("Kafka is ready")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ReadinessWaiter) checkKafka() error {
	for _, broker := range w.brokers {
		conn, err := net.DialTimeout("tcp", broker, 2*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to broker %s: %w", broker, err)
		}
		_ = conn.Close()
	}

	conn, err := kafka.Dial("tcp", w.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	partitions, err := conn.ReadPartitions(w.topic)
	if err != nil {
		return fmt.Errorf("failed to read partitions for topic %s: %w", w.topic, err)
	}
	if len(partitions) == 0 {
		return fmt.Errorf("topic %s has no partitions", w.topic)
	}
	return nil
}
