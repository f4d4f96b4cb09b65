package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestProducer_Publish(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	topic := "test-audit-events"
	ctx := context.Background()

	t.Run("SuccessfulPublishKeyedByAccountID", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &Producer{
			logger: logger,
			writer: mockWriter,
			topic:  topic,
		}

		event := Event{
			Kind:      KindAccountCreated,
			AccountID: "acc-1",
			Actor:     "dev-operator",
		}
		expectedJSONValue, _ := json.Marshal(event)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			return string(msg.Key) == "acc-1" && string(msg.Value) == string(expectedJSONValue)
		})).Return(nil).Once()

		err := producer.Publish(ctx, event)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("FallsBackToKindKeyWhenNoIDs", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &Producer{
			logger: logger,
			writer: mockWriter,
			topic:  topic,
		}

		event := Event{Kind: KindReservationCancelled, Actor: "clearing-hub"}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 && string(msgs[0].Key) == string(KindReservationCancelled)
		})).Return(nil).Once()

		err := producer.Publish(ctx, event)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriteFailure", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &Producer{
			logger: logger,
			writer: mockWriter,
			topic:  topic,
		}

		writeErr := errors.New("kafka write error")
		mockWriter.On("WriteMessages", ctx, mock.Anything).Return(writeErr).Once()

		err := producer.Publish(ctx, Event{Kind: KindJournalEntryCreated, EntryID: "entry-1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, writeErr)
		assert.Contains(t, err.Error(), topic)
		mockWriter.AssertExpectations(t)
	})
}

func TestProducer_Close(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	t.Run("Success", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &Producer{logger: logger, writer: mockWriter, topic: "test-audit-events"}
		mockWriter.On("Close").Return(nil).Once()

		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("Failure", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &Producer{logger: logger, writer: mockWriter, topic: "test-audit-events"}
		closeErr := errors.New("close error")
		mockWriter.On("Close").Return(closeErr).Once()

		err := producer.Close()
		require.Error(t, err)
		assert.ErrorIs(t, err, closeErr)
		mockWriter.AssertExpectations(t)
	})
}
