package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeExpirationReminder(t *testing.T) {
	msg := ExpirationReminder{
		To:     "hodan@example.com",
		Name:   "Hodan",
		Code:   "MEM/00012",
		Expiry: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Amount: "USD 45.00",
		Branch: "Downtown",
	}.Compose()
	assert.Equal(t, "hodan@example.com", msg.To)
	assert.Equal(t, "Membership MEM/00012 expires soon", msg.Subject)
	assert.Contains(t, msg.Body, "expires on 2025-02-01")
	assert.Contains(t, msg.Body, "USD 45.00")
	assert.Contains(t, msg.Body, "Downtown")
}

func TestSenderBuildsEmail(t *testing.T) {
	var sent *email.Email
	s := NewSender(Config{Host: "127.0.0.1", Port: 1025, From: "desk@gym.local"}, nil)
	s.send = func(e *email.Email) error {
		sent = e
		return nil
	}
	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.c", Subject: "Hi", Body: "Body"}))
	require.NotNil(t, sent)
	assert.Equal(t, "desk@gym.local", sent.From)
	assert.Equal(t, []string{"a@b.c"}, sent.To)
	assert.Equal(t, "Body", string(sent.Text))

	raw, err := sent.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: Hi")
}

func TestSenderWrapsTransportError(t *testing.T) {
	s := NewSender(Config{}, nil)
	s.send = func(e *email.Email) error { return errors.New("dial tcp: refused") }
	err := s.Send(context.Background(), Message{To: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	assert.Error(t, s.Send(context.Background(), Message{}))
}

type enqueueStub struct{ msgs []Message }

func (e *enqueueStub) EnqueueEmail(ctx context.Context, msg Message) error {
	e.msgs = append(e.msgs, msg)
	return nil
}

func TestQueueSkipsMissingAddress(t *testing.T) {
	stub := &enqueueStub{}
	q := NewQueue(stub)
	require.NoError(t, q.SendExpirationReminder(context.Background(), ExpirationReminder{Code: "MEM/1"}))
	require.NoError(t, q.SendExpirationReminder(context.Background(), ExpirationReminder{To: "x@y.z", Code: "MEM/2"}))
	require.Len(t, stub.msgs, 1)
	assert.Equal(t, "x@y.z", stub.msgs[0].To)
}
