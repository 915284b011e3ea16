package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/Mehdi-code-93/fitrun/internal/events"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"change_type":"INSERT","user_id":"user-1"}`)
	msg := kafka.Message{
		Topic:     "training_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("training.changed")},
			{Key: "user_id", Value: []byte("user-1")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "training.changed", handler.last.EventType)
	require.Equal(t, "user-1", handler.last.UserID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:     "training_events",
		Partition: 0,
		Offset:    20,
		Time:      time.Now().UTC(),
		Value:     []byte(`{"change_type":"UPDATE"}`),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("training.changed")},
			{Key: "user_id", Value: []byte("user-2")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Missing the event_type header.
	msg := kafka.Message{
		Topic: "training_events",
		Value: []byte(`{}`),
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 0, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
}

func TestFeedHandlerPublishesToHub(t *testing.T) {
	hub := feed.NewHub()
	handler := NewFeedHandler(hub, log.New(testWriter{t}, "", 0))

	var received []feed.ChangeEvent
	unsub := hub.Subscribe("user-1", func(ev feed.ChangeEvent) {
		received = append(received, ev)
	})
	defer unsub()

	changed := events.TrainingChanged{
		ChangeType: "INSERT",
		UserID:     "user-1",
		New: &events.TrainingRow{
			ID:          "t-1",
			UserID:      "user-1",
			Category:    "cardio",
			Type:        "course",
			DurationMin: 30,
			Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(changed)
	require.NoError(t, err)

	err = handler.Handle(context.Background(), Message{
		Topic:     "training_events",
		EventType: "training.changed",
		UserID:    "user-1",
		Payload:   payload,
	})
	require.NoError(t, err)

	require.Len(t, received, 1)
	require.Equal(t, feed.ChangeInsert, received[0].Type)
	require.NotNil(t, received[0].New)
	require.Equal(t, "t-1", received[0].New.ID)
}

func TestFeedHandlerIgnoresUnknownChangeType(t *testing.T) {
	hub := feed.NewHub()
	handler := NewFeedHandler(hub, log.New(testWriter{t}, "", 0))

	var calls int
	unsub := hub.Subscribe("user-1", func(feed.ChangeEvent) { calls++ })
	defer unsub()

	payload, err := json.Marshal(events.TrainingChanged{
		ChangeType: "TRUNCATE",
		UserID:     "user-1",
	})
	require.NoError(t, err)

	err = handler.Handle(context.Background(), Message{
		Topic:     "training_events",
		EventType: "training.changed",
		UserID:    "user-1",
		Payload:   payload,
	})
	require.NoError(t, err)
	require.Zero(t, calls)
}

func TestFeedHandlerIgnoresForeignEventTypes(t *testing.T) {
	hub := feed.NewHub()
	handler := NewFeedHandler(hub, log.New(testWriter{t}, "", 0))

	err := handler.Handle(context.Background(), Message{
		Topic:     "training_events",
		EventType: "profile.updated",
		Payload:   []byte(`{}`),
	})
	require.NoError(t, err)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
