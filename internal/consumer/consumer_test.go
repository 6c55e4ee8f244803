package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (i *countingInvalidator) Invalidate(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	return i.err
}

func (i *countingInvalidator) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

// scriptedReader hands out queued messages, then blocks until ctx is done.
type scriptedReader struct {
	mu     sync.Mutex
	queue  []kafka.Message
	errs   []error
	closed bool
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestProcessMessage(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		invalidate bool
	}{
		{name: "updated", key: "tax_configuration.updated.t1", invalidate: true},
		{name: "created", key: "tax_configuration.created.t2", invalidate: true},
		{name: "deleted", key: "tax_configuration.deleted.t3", invalidate: true},
		{name: "unknown action", key: "tax_configuration.renamed.t1", invalidate: false},
		{name: "other entity", key: "order.created.1", invalidate: false},
		{name: "malformed", key: "garbage", invalidate: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &countingInvalidator{}
			c := NewConsumer(&scriptedReader{}, inv)
			got := c.processMessage(context.Background(), kafka.Message{Key: []byte(tt.key)})
			assert.Equal(t, tt.invalidate, got)
			if tt.invalidate {
				assert.Equal(t, 1, inv.count())
			} else {
				assert.Equal(t, 0, inv.count())
			}
		})
	}
}

func TestProcessMessage_InvalidateFails(t *testing.T) {
	c := NewConsumer(&scriptedReader{}, &countingInvalidator{err: errors.New("redis down")})
	assert.False(t, c.processMessage(context.Background(), kafka.Message{Key: []byte("tax_configuration.updated.t1")}))
}

func TestStartKafkaConsumer(t *testing.T) {
	reader := &scriptedReader{
		errs: []error{errors.New("broker unavailable")},
		queue: []kafka.Message{
			{Key: []byte("tax_configuration.updated.t1")},
			{Key: []byte("tax_configuration.deleted.t2")},
		},
	}
	inv := &countingInvalidator{}
	c := NewConsumer(reader, inv)
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.StartKafkaConsumer(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return inv.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	reader.mu.Lock()
	assert.True(t, reader.closed)
	reader.mu.Unlock()
}
