package kafka

import (
	"testing"

	"retailorders/internal/task"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	in, err := task.New(task.TypeSendEmail, task.SendEmailPayload{To: "buyer@example.com", Subject: "Order #1"})
	require.NoError(t, err)

	msg, err := toMessage(in)
	require.NoError(t, err)
	assert.Equal(t, in.ID, string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "send_email", string(msg.Headers[0].Value))

	out, err := fromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Type, out.Type)
	assert.JSONEq(t, string(in.Payload), string(out.Payload))
}

func TestFromMessage_Rejects(t *testing.T) {
	_, err := fromMessage(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)

	_, err = fromMessage(kafka.Message{Value: []byte(`{"id":"x"}`)})
	assert.EqualError(t, err, "missing task type")
}
