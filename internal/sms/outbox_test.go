package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

type templateStub map[Usage]Template

func (s templateStub) TemplateByUsage(ctx context.Context, usage Usage) (*Template, error) {
	t, ok := s[usage]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &t, nil
}

type queueStub struct{ msgs []Message }

func (q *queueStub) EnqueueSMS(ctx context.Context, msg Message) error {
	q.msgs = append(q.msgs, msg)
	return nil
}

type senderStub struct{ res Result }

func (s senderStub) Send(ctx context.Context, phone, message string) Result { return s.res }

type warningStub map[int64]string

func (w warningStub) SetSMSWarning(ctx context.Context, memberID int64, warning string) error {
	w[memberID] = warning
	return nil
}

func TestOutboxRendersAndQueues(t *testing.T) {
	store := templateStub{UsageExpiration: {Name: "expiry", Usage: UsageExpiration, Body: "Hi {{ .MemberName }}, {{ .Code }} expires {{ .Expiry }}"}}
	queue := &queueStub{}
	outbox := NewOutbox(store, queue, nil)

	data := map[string]string{"MemberName": "Hodan", "Code": "MEM/00001", "Expiry": "2025-02-01"}
	require.NoError(t, outbox.Notify(context.Background(), UsageExpiration, Recipient{MemberID: 4, Phone: "2526"}, data))
	require.Len(t, queue.msgs, 1)
	assert.Equal(t, "Hi Hodan, MEM/00001 expires 2025-02-01", queue.msgs[0].Body)
	assert.Equal(t, int64(4), queue.msgs[0].MemberID)
	assert.NotEmpty(t, queue.msgs[0].UUID)

	require.NoError(t, outbox.Notify(context.Background(), UsageActivation, Recipient{MemberID: 4, Phone: "2526"}, data))
	require.NoError(t, outbox.Notify(context.Background(), UsageExpiration, Recipient{MemberID: 5}, data))
	assert.Len(t, queue.msgs, 1)
}

func TestDelivererAnnotatesMember(t *testing.T) {
	warnings := warningStub{}
	failing := NewDeliverer(senderStub{res: Result{Response: `{"status":"error"}`}}, warnings, nil)
	res, err := failing.Deliver(context.Background(), Message{MemberID: 9, Phone: "2526", Body: "x"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, `{"status":"error"}`, warnings[9])

	ok := NewDeliverer(senderStub{res: Result{OK: true}}, warnings, nil)
	_, err = ok.Deliver(context.Background(), Message{MemberID: 9, Phone: "2526", Body: "x"})
	require.NoError(t, err)
	assert.Equal(t, "", warnings[9])
}

func TestTemplateValidate(t *testing.T) {
	assert.NoError(t, Template{Name: "a", Usage: UsageOther, Body: "{{ .X }}"}.Validate())
	err := Template{Name: "a", Usage: "weird", Body: "x"}.Validate()
	assert.True(t, errors.Is(err, shared.ErrValidation))
	err = Template{Name: "a", Usage: UsageOther, Body: "{{ .X "}.Validate()
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
