package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	c.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, c.Since(start), time.Millisecond)

	timer := c.NewTimer(time.Millisecond)
	<-timer.C()
	assert.False(t, timer.Stop())

	ticker := c.NewTicker(time.Millisecond)
	<-ticker.C()
	ticker.Stop()
}

func TestMockClockTimers(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewMockClock(start)

	timer := c.NewTimer(50 * time.Millisecond)
	c.Advance(40 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(10 * time.Millisecond)
	select {
	case got := <-timer.C():
		assert.Equal(t, start.Add(50*time.Millisecond), got)
	default:
		t.Fatal("timer did not fire")
	}
	assert.False(t, timer.Stop())
	assert.Equal(t, 50*time.Millisecond, c.Since(start))

	stopped := c.NewTimer(time.Millisecond)
	assert.True(t, stopped.Stop())
	c.Advance(time.Second)
	assert.Empty(t, stopped.C())
	assert.Empty(t, c.timers)
}

func TestMockClockTicker(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ticker := c.NewTicker(20 * time.Millisecond)

	ticks := 0
	for i := 0; i < 10; i++ {
		c.Advance(10 * time.Millisecond)
		select {
		case <-ticker.C():
			ticks++
		default:
		}
	}
	assert.Equal(t, 5, ticks)

	ticker.Stop()
	c.Advance(time.Second)
	assert.Empty(t, ticker.C())
}

func TestMockClockSleeps(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	c.Sleep(10 * time.Millisecond)
	c.Sleep(10 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, c.Sleeps())
	assert.Equal(t, time.Unix(0, 0), c.Now())
}
