package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/weak-head/esb-ha/internal/hass"
	"github.com/weak-head/esb-ha/internal/logger"
)

func TestPublisherCreation(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T,
		w *writerMock,
		s *sleeperMock,
		l logger.Log,
	){
		"fails to create if no writer provided":  testFailsIfNoWriter,
		"fails to create if no sleeper provided": testFailsIfNoSleeper,
		"falls back to the default batch size":   testDefaultBatchSize,
	} {
		t.Run(scenario, func(t *testing.T) {
			log, _ := logger.NewNullLogger()
			fn(t, &writerMock{}, &sleeperMock{}, log)
		})
	}
}

func TestPublisherFlow(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T,
		w *writerMock,
		s *sleeperMock,
		l *logtest.Hook,
		publisher *Publisher,
	){
		"publishes one message per record":           testPublishesRecords,
		"writes in batches":                          testWritesInBatches,
		"publishes nothing for no records":           testPublishesNothing,
		"retries a failed write":                     testRetriesFailedWrite,
		"exits on N consecutive write errors":        testExitOnWriteErrors,
		"exits on canceled context":                  testExitOnContext,
		"exits on context canceled during back-off":  testExitOnContextDuringBackoff,
		"resets sleeper after successful publishing": testResetsSleeper,
	} {
		t.Run(scenario, func(t *testing.T) {
			writer := &writerMock{}
			sleeper := &sleeperMock{}
			log, hook := logger.NewNullLogger()

			publisher, err := NewPublisher(writer, sleeper, 2, log)
			require.NoError(t, err)

			fn(t, writer, sleeper, hook, publisher)
		})
	}
}

type writerMock struct {
	writeCount  int
	written     []kafka.Message
	writeHook   func(msgs ...kafka.Message)
	writeResult []error
}

func (w *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.writeCount++
	if w.writeHook != nil {
		w.writeHook(msgs...)
	}

	var err error
	if len(w.writeResult) > 0 {
		err = w.writeResult[0]
		if len(w.writeResult) > 1 {
			w.writeResult = w.writeResult[1:]
		}
	}
	if err == nil {
		w.written = append(w.written, msgs...)
	}
	return err
}

type sleeperMock struct {
	sleepCount int
	resetCount int
	sleepHook  func()
}

func (s *sleeperMock) Sleep(ctx context.Context) error {
	s.sleepCount++
	if s.sleepHook != nil {
		s.sleepHook()
	}
	return ctx.Err()
}

func (s *sleeperMock) Reset() {
	s.resetCount++
}

func records(n int) []hass.SensorRecord {
	rs := make([]hass.SensorRecord, 0, n)
	for i := 0; i < n; i++ {
		rs = append(rs, hass.SensorRecord{
			EntityID: hass.EntityID,
			State:    fmt.Sprintf("%d.0", i),
			Attributes: hass.Attributes{
				MPRN: fmt.Sprintf("1000000%d", i),
			},
		})
	}
	return rs
}

func testFailsIfNoWriter(t *testing.T, w *writerMock, s *sleeperMock, l logger.Log) {
	publisher, err := NewPublisher(nil, s, 0, l)
	require.Nil(t, publisher)
	require.Equal(t, ErrNoWriterProvided, err)
}

func testFailsIfNoSleeper(t *testing.T, w *writerMock, s *sleeperMock, l logger.Log) {
	publisher, err := NewPublisher(w, nil, 0, l)
	require.Nil(t, publisher)
	require.Equal(t, ErrNoSleeperProvided, err)
}

func testDefaultBatchSize(t *testing.T, w *writerMock, s *sleeperMock, l logger.Log) {
	publisher, err := NewPublisher(w, s, 0, l)
	require.NoError(t, err)
	require.Equal(t, defaultBatchSize, publisher.batchSize)
}

func testPublishesRecords(
	t *testing.T,
	w *writerMock,
	s *sleeperMock,
	l *logtest.Hook,
	publisher *Publisher,
) {
	rs := records(2)
	require.NoError(t, publisher.Publish(context.Background(), rs))

	require.Len(t, w.written, 2)
	for i, m := range w.written {
		require.Equal(t, rs[i].Attributes.MPRN, string(m.Key))
		require.Equal(t, headerEntityID, m.Headers[0].Key)
		require.Equal(t, hass.EntityID, string(m.Headers[0].Value))

		var got hass.SensorRecord
		require.NoError(t, json.Unmarshal(m.Value, &got))
		require.Equal(t, rs[i], got)
	}

	require.Equal(t, logrus.InfoLevel, l.LastEntry().Level)
	require.Equal(t, "Sensor records have been published.", l.LastEntry().Message)
}

func testWritesInBatches(
	t *testing.T,
	w *writerMock,
	s *sleeperMock,
	l *logtest.Hook,
	publisher *Publisher,
) {
	var sizes []int
	w.writeHook = func(msgs ...kafka.Message) {
		sizes = append(sizes, len(msgs))
	}

	require.NoError(t, publisher.Publish(context.Background(), records(5)))
	require.Equal(t, []int{2, 2, 1}, sizes)
	require.Len(t, w.written, 5)
}

func testPublishesNothing(
	t *testing.T,
	w *writerMock,
	s *sleeperMock,
	l *logtest.Hook,
	publisher *Publisher,
) {
	require.NoError(t, publisher.Publish(context.Background(), nil))
	require.Equal(t, 0, w.writeCount)
}

func testRetriesFailedWrite(
	t *testing.T,
	w *writerMock,
	s *sleeperMock,
	l *logtest.Hook,
	publisher *Publisher,
) {
	w.writeResult = []error{fmt.Errorf("leader not available"), nil}

	require.NoError(t, publisher.Publish(context.Background(), records(1)))
	require.Equal(t, 2, w.writeCount)
	require.Equal(t, 1, s.sleepCount)
	require.Len(t, w.written, 1)
}

func testExitOnWriteErrors(
	t *testing.T,
	w *writerMock,
	s *sleeperMock,
	l *logtest.Hook,
	publisher *Publisher,
) {
	failure := fmt.Errorf("Invalid hostname")
	w.writeResult = []error{failure}

	err := publisher.Publish(context.Background(), records(3))
	require.Equal(t, failure, err)

	require.Equal(t, retryWriteCount, w.writeCount)
	require.Equal(t, retryWriteCount-1, s.sleepCount)
	require.Equal(t, 0, s.resetCount)

	require.Equal(t, logrus.ErrorLevel, l.LastEntry().Level)
	require.Equal(
		t,
		fmt.Sprintf(
			"Giving up writing the messages. Stopping because of %d consecutive failed writes",
			retryWriteCount),
		l.LastEntry().Message)
}

func testExitOnContext(
	t *testing.T,
	w *writerMock,
	s *sleeperMock,
	l *logtest.Hook,
	publisher *Publisher,
) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.Publish(ctx, records(1))
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 0, w.writeCount)

	require.Equal(t, logrus.ErrorLevel, l.LastEntry().Level)
	require.Equal(t, "Publishing has been stopped.", l.LastEntry().Message)
}

func testExitOnContextDuringBackoff(
	t *testing.T,
	w *writerMock,
	s *sleeperMock,
	l *logtest.Hook,
	publisher *Publisher,
) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.writeResult = []error{fmt.Errorf("leader not available")}
	s.sleepHook = cancel

	err := publisher.Publish(ctx, records(1))
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, w.writeCount)
	require.Equal(t, 1, s.sleepCount)
	require.Equal(t, 0, s.resetCount)

	require.Equal(t, logrus.ErrorLevel, l.LastEntry().Level)
	require.Equal(t, "Publishing has been stopped.", l.LastEntry().Message)
}

func testResetsSleeper(
	t *testing.T,
	w *writerMock,
	s *sleeperMock,
	l *logtest.Hook,
	publisher *Publisher,
) {
	require.NoError(t, publisher.Publish(context.Background(), records(1)))
	require.Equal(t, 0, s.sleepCount)
	require.Equal(t, 1, s.resetCount)
}
