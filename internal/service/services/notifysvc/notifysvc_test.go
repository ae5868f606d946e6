package notifysvc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/noelbox/storefront/internal/service/models/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, text, html string
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *mockMailer) Send(_ context.Context, to, subject, text, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, text: text, html: html})

	return nil
}

func (m *mockMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sent)
}

func confirmation() notification.OrderConfirmation {
	return notification.OrderConfirmation{
		To:           "buyer@example.com",
		OrderID:      "cs_test_1",
		AmountTotal:  3980,
		Currency:     "eur",
		VariantLabel: "Sapin",
		Qty:          "2",
	}
}

func TestSendConfirmation_Sends(t *testing.T) {
	m := &mockMailer{}
	svc := MustNewNotifyService(WithMailer(m))

	require.NoError(t, svc.SendConfirmation(context.Background(), confirmation()))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "buyer@example.com", m.sent[0].to)
	assert.Equal(t, "Confirmation de commande #cs_test_1", m.sent[0].subject)
	assert.Contains(t, m.sent[0].text, "Livraison offerte")
}

func TestSendConfirmation_NoopWithoutMailerOrRecipient(t *testing.T) {
	svc := MustNewNotifyService()
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.SendConfirmation(context.Background(), confirmation()))

	m := &mockMailer{}
	svc = MustNewNotifyService(WithMailer(m))
	c := confirmation()
	c.To = ""
	assert.NoError(t, svc.SendConfirmation(context.Background(), c))
	assert.Empty(t, m.sent)
}

func TestSendConfirmation_ReturnsMailerError(t *testing.T) {
	svc := MustNewNotifyService(WithMailer(&mockMailer{err: errors.New("smtp down")}))

	assert.EqualError(t, svc.SendConfirmation(context.Background(), confirmation()), "smtp down")
}

func TestDirectDispatcher_SendsInBackground(t *testing.T) {
	m := &mockMailer{}
	d := NewDirectDispatcher(MustNewNotifyService(WithMailer(m)), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, confirmation())
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, d.Wait(waitCtx))
	assert.Equal(t, 1, m.count())
}

func TestDirectDispatcher_SwallowsFailures(t *testing.T) {
	d := NewDirectDispatcher(MustNewNotifyService(WithMailer(&mockMailer{err: errors.New("boom")})), time.Second)

	d.Dispatch(context.Background(), confirmation())

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, d.Wait(waitCtx))
}

type mockPublisher struct {
	mu    sync.Mutex
	queue string
	body  []byte
	err   error
	block chan struct{}
}

func (p *mockPublisher) PublishJSON(queue string, body []byte) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = queue
	p.body = body

	return p.err
}

func waitFor(t *testing.T, d interface{ Wait(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
}

func TestQueueDispatcher_PublishesJSON(t *testing.T) {
	p := &mockPublisher{}
	d := NewQueueDispatcher(p, "order-confirmations", time.Second)

	d.Dispatch(context.Background(), confirmation())
	waitFor(t, d)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, "order-confirmations", p.queue)
	var got notification.OrderConfirmation
	require.NoError(t, json.Unmarshal(p.body, &got))
	assert.Equal(t, confirmation(), got)
}

func TestQueueDispatcher_PublishFailureIsNotFatal(t *testing.T) {
	d := NewQueueDispatcher(&mockPublisher{err: errors.New("channel closed")}, "q", time.Second)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), confirmation())
	})
	waitFor(t, d)
}

func TestQueueDispatcher_StalledBrokerDoesNotBlockCaller(t *testing.T) {
	p := &mockPublisher{block: make(chan struct{})}
	defer close(p.block)
	d := NewQueueDispatcher(p, "q", 50*time.Millisecond)

	start := time.Now()
	d.Dispatch(context.Background(), confirmation())
	assert.Less(t, time.Since(start), 50*time.Millisecond, "dispatch must return before the publish completes")

	waitFor(t, d)
	assert.Less(t, time.Since(start), time.Second, "a stalled publish is abandoned after the timeout")
}
