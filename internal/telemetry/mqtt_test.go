package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskie/internal/mode"
	"deskie/internal/presence"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient only implements what the publisher uses.
type fakeClient struct {
	mqtt.Client
	mu   sync.Mutex
	msgs []published
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func (f *fakeClient) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func TestPublisherTopicsAndPayloads(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "office/desk")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	dist := 123.4
	require.NoError(t, p.PublishSample(SampleMessage{Mode: "Study", DistanceCm: &dist, AtDesk: true}))
	require.NoError(t, p.PublishMode(ModeMessage{Mode: "Study", Session: "abc"}))
	require.NoError(t, p.Send(ctx, presence.AwayAlert{Mode: mode.Study, Duration: 90 * time.Second}))

	require.Eventually(t, func() bool { return len(client.snapshot()) == 3 }, time.Second, time.Millisecond)
	msgs := client.snapshot()

	assert.Equal(t, "office/desk/sample", msgs[0].topic)
	assert.False(t, msgs[0].retained)
	var sample SampleMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &sample))
	require.NotNil(t, sample.DistanceCm)
	assert.Equal(t, 123.4, *sample.DistanceCm)
	assert.True(t, sample.AtDesk)

	assert.Equal(t, "office/desk/mode", msgs[1].topic)
	assert.True(t, msgs[1].retained)

	assert.Equal(t, "office/desk/alert", msgs[2].topic)
	var a AlertMessage
	require.NoError(t, json.Unmarshal(msgs[2].payload, &a))
	assert.Equal(t, "Study", a.Mode)
	assert.Equal(t, 90.0, a.DurationSeconds)
}

func TestPublisherDropsWhenQueueFull(t *testing.T) {
	p := NewPublisher(&fakeClient{}, "")
	for i := 0; i < queueSize; i++ {
		require.NoError(t, p.PublishSample(SampleMessage{}))
	}
	assert.Error(t, p.PublishSample(SampleMessage{}))
	assert.Equal(t, "mqtt", p.Name())
}
