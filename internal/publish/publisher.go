// Package publish streams sensor records to a message broker.
package publish

import (
	"context"
	"encoding/json"
	"errors"

	kafka "github.com/segmentio/kafka-go"

	"github.com/weak-head/esb-ha/internal/hass"
	"github.com/weak-head/esb-ha/internal/logger"
)

const (
	// retryWriteCount defines the number of attempts
	// to write a batch of messages before giving up.
	retryWriteCount = 3

	// defaultBatchSize is the number of records written at once.
	defaultBatchSize = 100

	headerEntityID = "entity_id"
)

var (
	// ErrNoWriterProvided happens when writer is not provided.
	ErrNoWriterProvided = errors.New("no writer provided")

	// ErrNoSleeperProvided happens when sleeper is not provided.
	ErrNoSleeperProvided = errors.New("no sleeper provided")
)

// Writer is an atomic message writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Sleeper is a routine sleeper with some sleeping strategy
// and ability to reset the strategy state.
// Sleep returns early with the context error once ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context) error
	Reset()
}

// Publisher writes sensor records to a stream, one message per record.
type Publisher struct {
	writer    Writer
	sleeper   Sleeper
	batchSize int

	log logger.Log
}

// NewPublisher creates a new sensor record publisher.
// A non-positive batchSize falls back to the default.
func NewPublisher(
	writer Writer,
	sleeper Sleeper,
	batchSize int,
	log logger.Log,
) (*Publisher, error) {
	if writer == nil {
		return nil, ErrNoWriterProvided
	}

	if sleeper == nil {
		return nil, ErrNoSleeperProvided
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Publisher{
		writer:    writer,
		sleeper:   sleeper,
		batchSize: batchSize,
		log:       log.WithField(logger.FieldPackage, "publish"),
	}, nil
}

// Publish writes the records in order. The message key is the MPRN,
// so the readings of one meter stay together on a keyed balancer.
//
// A batch that fails to be written is retried with a pause in between;
// Publish gives up after a few consecutive failures of the same batch.
func (p *Publisher) Publish(ctx context.Context, records []hass.SensorRecord) error {
	log := p.log.WithFields(logger.Fields{
		logger.FieldFunction: "Publisher.Publish",
		"records":            len(records),
	})
	log.Info("Publishing sensor records.")

	msgs, err := messages(records)
	if err != nil {
		log.Error(err, "Failed to encode the sensor records.")
		return err
	}

	for start := 0; start < len(msgs); start += p.batchSize {
		end := start + p.batchSize
		if end > len(msgs) {
			end = len(msgs)
		}

		if err := p.write(ctx, log, msgs[start:end]); err != nil {
			return err
		}
	}

	p.sleeper.Reset()
	log.Info("Sensor records have been published.")
	return nil
}

func (p *Publisher) write(ctx context.Context, log logger.Log, batch []kafka.Message) error {
	writeAttempt := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Error(err, "Publishing has been stopped.")
			return err
		}

		err := p.writer.WriteMessages(ctx, batch...)
		if err == nil {
			return nil
		}
		log.Error(err, "Failed to write the messages to the stream.")

		writeAttempt++
		if writeAttempt >= retryWriteCount {
			log.Errorf(err,
				"Giving up writing the messages. Stopping because of %d consecutive failed writes",
				retryWriteCount)
			return err
		}
		if err := p.sleeper.Sleep(ctx); err != nil {
			log.Error(err, "Publishing has been stopped.")
			return err
		}
	}
}

func messages(records []hass.SensorRecord) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		value, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}

		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.Attributes.MPRN),
			Value: value,
			Headers: []kafka.Header{
				{Key: headerEntityID, Value: []byte(r.EntityID)},
			},
		})
	}
	return msgs, nil
}
