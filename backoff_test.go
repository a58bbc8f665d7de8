package tmi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectBackoff(t *testing.T) {
	b := newReconnectBackoff(100*time.Millisecond, time.Second, 2)

	var got []time.Duration
	for i := 0; i < 6; i++ {
		got = append(got, b.Next())
	}
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}, got)

	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.Next())
}

func TestReconnectBackoffDefaults(t *testing.T) {
	opts := DefaultOptions()
	b := newReconnectBackoff(opts.ReconnectInterval, opts.MaxReconnectInterval, opts.ReconnectDecay)
	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 1500*time.Millisecond, b.Next())
	assert.Equal(t, 2250*time.Millisecond, b.Next())

	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, b.Next(), 30*time.Second)
	}
}
