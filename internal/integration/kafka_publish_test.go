//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/where/internal/adapter/kafka"
	"github.com/couchcryptid/where/internal/adapter/locale"
	"github.com/couchcryptid/where/internal/adapter/timezone"
	"github.com/couchcryptid/where/internal/config"
	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/observability"
	"github.com/couchcryptid/where/internal/pipeline"
	"github.com/couchcryptid/where/internal/where"
)

const testTopic = "test-region-observations"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("where-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedMessage struct {
	Event   domain.ChangeEvent
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.ChangeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal change event")
	return publishedMessage{Event: event, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestWriterRoundTrip verifies that kafka.Writer keys and annotates events.
func TestWriterRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	observedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, writer.LoadBatch(ctx, []domain.ChangeEvent{{
		Source:     domain.SourceTimeZone,
		Change:     domain.ChangeUpdate,
		RegionCode: "DE",
		RegionName: "Germany",
		Coordinate: &domain.Coordinate{Lat: 52.5, Lon: 13.366},
		ObservedAt: observedAt,
	}}))

	msg := readPublished(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "time_zone", msg.Key)
	assert.Equal(t, "time_zone", msg.Headers["source"])
	assert.Equal(t, domain.ChangeUpdate, msg.Headers["change"])
	assert.Equal(t, observedAt.Format(time.RFC3339), msg.Headers["observed_at"])
	assert.Equal(t, "DE", msg.Event.RegionCode)
	assert.True(t, observedAt.Equal(msg.Event.ObservedAt))
	require.NotNil(t, msg.Event.Coordinate)
	assert.InDelta(t, 52.5, msg.Event.Coordinate.Lat, 1e-9)
}

// TestDetectPublishesChanges wires Where, Publisher and Writer against a real
// broker and checks that every detected source is published.
func TestDetectPublishesChanges(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	w := where.New(where.Config{
		Probes: []domain.Probe{
			locale.NewProbe("fr_FR.UTF-8"),
			timezone.NewProbe("Europe/Berlin"),
		},
		Logger:  discardLogger(),
		Metrics: metrics,
	})
	t.Cleanup(w.Stop)

	changes, unsubscribe := w.Subscribe(16)
	p := pipeline.New(changes, writer, discardLogger(), metrics, clockwork.NewRealClock(), 10, 200*time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	w.Detect(ctx, where.Options(0))

	consumer := newConsumer(t, broker)
	got := map[string]publishedMessage{}
	for len(got) < 2 {
		msg := readPublished(ctx, t, consumer)
		got[msg.Key] = msg
	}

	unsubscribe()
	require.NoError(t, <-errCh)
	require.NoError(t, p.CheckReadiness(ctx))

	require.Contains(t, got, "locale")
	require.Contains(t, got, "time_zone")
	assert.Equal(t, "FR", got["locale"].Event.RegionCode)
	assert.Equal(t, "DE", got["time_zone"].Event.RegionCode)
	for _, msg := range got {
		assert.Equal(t, domain.ChangeUpdate, msg.Event.Change)
	}
}
