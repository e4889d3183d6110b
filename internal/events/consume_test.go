package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsumer struct {
	deliveries chan amqp.Delivery
	bindKey    string
	exchange   string
	closed     bool
}

func (f *fakeConsumer) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchange = name
	return nil
}

func (f *fakeConsumer) QueueDeclare(string, bool, bool, bool, bool, amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: "amq.gen-test"}, nil
}

func (f *fakeConsumer) QueueBind(_, key, _ string, _ bool, _ amqp.Table) error {
	f.bindKey = key
	return nil
}

func (f *fakeConsumer) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeConsumer) Close() error {
	f.closed = true
	return nil
}

func TestBindingKey(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "session.*", BindingKey(uuid.Nil))
	assert.Equal(t, "session."+id.String(), BindingKey(id))
	assert.Equal(t, RoutingKey(Update{SessionID: id}), BindingKey(id))
}

func TestSubscribe_DeliversUntilClosed(t *testing.T) {
	u := sampleUpdate()
	body, err := json.Marshal(u)
	require.NoError(t, err)

	ch := &fakeConsumer{deliveries: make(chan amqp.Delivery, 3)}
	ch.deliveries <- amqp.Delivery{Body: []byte("not json")}
	ch.deliveries <- amqp.Delivery{Body: body}
	close(ch.deliveries)

	var got []Update
	err = subscribe(context.Background(), ch, DefaultExchange, u.SessionID, nil, func(u Update) { got = append(got, u) })
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, u.SubmissionID, got[0].SubmissionID)
	assert.Equal(t, DefaultExchange, ch.exchange)
	assert.Equal(t, BindingKey(u.SessionID), ch.bindKey)
	assert.True(t, ch.closed)
}

func TestSubscribe_StopsOnContext(t *testing.T) {
	ch := &fakeConsumer{deliveries: make(chan amqp.Delivery)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- subscribe(ctx, ch, DefaultExchange, uuid.Nil, nil, func(Update) {}) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}
