package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_Coalesces(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, nil)
	var first, last atomic.Int32

	d.Schedule(func(context.Context) error { first.Add(1); return nil })
	d.Schedule(func(context.Context) error { first.Add(1); return nil })
	d.Schedule(func(context.Context) error { last.Add(1); return nil })

	assert.Eventually(t, func() bool { return last.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), last.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_FlushRunsNow(t *testing.T) {
	d := NewDebouncer(time.Hour, nil)
	ran := 0
	d.Schedule(func(context.Context) error { ran++; return errors.New("boom") })
	assert.True(t, d.Pending())

	ok, err := d.Flush(context.Background())
	assert.True(t, ok)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, ran)

	ok, err = d.Flush(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 1, ran)
}

func TestDebouncer_TimerErrorsReported(t *testing.T) {
	var reported atomic.Value
	d := NewDebouncer(5*time.Millisecond, func(err error) { reported.Store(err.Error()) })
	d.Schedule(func(context.Context) error { return errors.New("disk full") })

	assert.Eventually(t, func() bool { return reported.Load() == "disk full" }, time.Second, 5*time.Millisecond)
}

func TestDebouncer_StopCancels(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, nil)
	var ran atomic.Bool
	d.Schedule(func(context.Context) error { ran.Store(true); return nil })
	d.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.False(t, ran.Load())
}
