package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bookstore-ledger/internal/config"
)

const (
	topicLookupAttempts = 5
	topicLookupBackoff  = 2 * time.Second
)

// topicAdmin is the part of *kafka.Conn used to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// topicConfig describes name with the partitioning from cfg. Zero values
// become a single partition with a single replica.
func topicConfig(name string, cfg *config.KafkaConfig) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if tc.NumPartitions <= 0 {
		tc.NumPartitions = 1
	}
	if tc.ReplicationFactor <= 0 {
		tc.ReplicationFactor = 1
	}
	return tc
}

// ensureTopic creates the topic unless the broker already reports partitions
// for it. Partition lookups are retried while the broker starts up.
func ensureTopic(ctx context.Context, admin topicAdmin, tc kafka.TopicConfig, backoff time.Duration, log *slog.Logger) error {
	log = log.With("topic", tc.Topic)

	var lastErr error
	for attempt := 1; attempt <= topicLookupAttempts; attempt++ {
		partitions, err := admin.ReadPartitions(tc.Topic)
		if err == nil && len(partitions) > 0 {
			log.Debug("Kafka topic already exists", "partitions", len(partitions))
			return nil
		}
		if err == nil {
			break
		}
		lastErr = err
		log.Warn("Failed to read topic partitions, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	log.Info("Creating Kafka topic",
		"partitions", tc.NumPartitions,
		"replication_factor", tc.ReplicationFactor,
		"last_lookup_error", lastErr,
	)
	if err := admin.CreateTopics(tc); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", tc.Topic, err)
	}
	return nil
}
