package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink mirrors audit events to a Kafka topic. Writes are buffered and
// asynchronous; a broker outage drops mirror records but never blocks the
// request path. The file sink remains the durable trail.
type KafkaSink struct {
	writer *kafka.Writer
	lines  chan []byte
	done   chan struct{}
}

// NewKafkaSink creates a mirror sink for the given brokers ("host:port,
// host:port") and topic.
func NewKafkaSink(brokers, topic string) *KafkaSink {
	s := &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		lines: make(chan []byte, 256),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *KafkaSink) run() {
	defer close(s.done)
	for line := range s.lines {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.writer.WriteMessages(ctx, kafka.Message{Value: line})
		cancel()
		if err != nil {
			slog.Warn("Audit kafka mirror write failed", "error", err)
		}
	}
}

// Write enqueues a record for mirroring. Drops the record when the buffer is
// full rather than blocking the caller.
func (s *KafkaSink) Write(line []byte) {
	// The emitter reuses its buffer between sinks only within one Emit call;
	// copy so the goroutine owns the bytes.
	cp := make([]byte, len(line))
	copy(cp, line)
	select {
	case s.lines <- cp:
	default:
		slog.Warn("Audit kafka mirror buffer full, dropping record")
	}
}

// Close drains the queue and closes the writer.
func (s *KafkaSink) Close() error {
	close(s.lines)
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
	}
	return s.writer.Close()
}
