package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ms-invites/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishTicketIssued(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w}

	issuedAt := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	err := p.PublishTicketIssued(context.Background(), models.TicketIssuedEvent{
		TicketID:    42,
		DisplayName: "Joao_1",
		Token:       "6f1c9a53-5c53-4bd4-a1f5-0b5f1c1c4a11",
		IssuedAt:    issuedAt,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, models.TopicTicketIssued, msg.Topic)
	assert.Equal(t, "42", string(msg.Key))

	var got models.TicketIssuedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "Joao_1", got.DisplayName)
	assert.True(t, issuedAt.Equal(got.IssuedAt))
}

func TestPublishTicketsPurged(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w}

	require.NoError(t, p.PublishTicketsPurged(context.Background(), models.TicketsPurgedEvent{Deleted: 7}))
	require.Len(t, w.messages, 1)
	assert.Equal(t, models.TopicTicketsPurged, w.messages[0].Topic)
	assert.JSONEq(t, `{"deleted":7,"purged_at":"0001-01-01T00:00:00Z"}`, string(w.messages[0].Value))
}

func TestPublishPropagatesWriterError(t *testing.T) {
	p := &Producer{Writer: &recordingWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), "topic", "key", []byte("v"))
	assert.EqualError(t, err, "broker down")
}

func TestRequiredTopicsMatchEventTopics(t *testing.T) {
	assert.ElementsMatch(t, []string{models.TopicTicketIssued, models.TopicTicketsPurged}, RequiredTopics)
}

func TestClose(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, (&Producer{Writer: w}).Close())
	assert.True(t, w.closed)
}
