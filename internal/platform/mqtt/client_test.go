package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient overrides only what Client uses; other calls panic.
type fakeClient struct {
	mqtt.Client
	token mqtt.Token
	sent  []published
	open  bool
}

func (f *fakeClient) Publish(topic string, qos byte, _ bool, payload any) mqtt.Token {
	f.sent = append(f.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return f.token
}

func (f *fakeClient) IsConnectionOpen() bool { return f.open }
func (f *fakeClient) Disconnect(uint)        { f.open = false }

func TestPublish(t *testing.T) {
	fc := &fakeClient{token: completedToken(nil), open: true}
	c := newClient(fc, 0)

	require.NoError(t, c.Publish(context.Background(), "prms/wristband/ward-3/jobs", []byte(`{}`)))
	require.Len(t, fc.sent, 1)
	assert.Equal(t, byte(1), fc.sent[0].qos)
	assert.Equal(t, "prms/wristband/ward-3/jobs", fc.sent[0].topic)
}

func TestPublishBrokerError(t *testing.T) {
	fc := &fakeClient{token: completedToken(errors.New("not authorized"))}
	err := newClient(fc, 1).Publish(context.Background(), "t", []byte("x"))
	assert.ErrorContains(t, err, "not authorized")
}

func TestPublishContextCancelled(t *testing.T) {
	fc := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newClient(fc, 1).Publish(ctx, "t", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHealthAndClose(t *testing.T) {
	fc := &fakeClient{open: true}
	c := newClient(fc, 1)
	assert.NoError(t, c.Health(context.Background()))
	require.NoError(t, c.Close())
	assert.Error(t, c.Health(context.Background()))
}

func TestNewWithoutBroker(t *testing.T) {
	c, err := New(context.Background(), Config{})
	assert.NoError(t, err)
	assert.Nil(t, c)
}
