package mpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ChannelSelector_LatchesRightWhenLouder(t *testing.T) {
	var c = new(ChannelSelector)

	var justLocked bool
	for i := 0; i < channelWarmupFrames; i++ {
		_, justLocked = c.Select(0.1, 0.5)
	}

	assert.True(t, justLocked)
	assert.True(t, c.Locked())
	assert.True(t, c.Right())
}

func Test_ChannelSelector_LatchesLeftWhenLouder(t *testing.T) {
	var c = new(ChannelSelector)

	for i := 0; i < channelWarmupFrames; i++ {
		c.Select(0.5, 0.1)
	}

	assert.True(t, c.Locked())
	assert.False(t, c.Right())
}

func Test_ChannelSelector_StaysLockedAfterLatch(t *testing.T) {
	var c = new(ChannelSelector)

	for i := 0; i < channelWarmupFrames; i++ {
		c.Select(0.1, 0.5)
	}
	assert.True(t, c.Right())

	// Even if the right channel goes silent and left gets loud, the
	// selection must not change once locked.
	for i := 0; i < 1000; i++ {
		sample, justLocked := c.Select(0.9, 0.0)
		assert.False(t, justLocked)
		assert.Equal(t, 0.0, sample)
	}
	assert.True(t, c.Right())
}

func Test_ChannelSelector_NotLockedBeforeWarmup(t *testing.T) {
	var c = new(ChannelSelector)
	c.Select(0.1, 0.9)
	assert.False(t, c.Locked())
}
