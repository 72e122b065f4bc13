package persist

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) fire(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var r recorder
	d := NewDebouncer(20*time.Millisecond, time.Second, r.fire)

	d.Trigger("a")
	d.Trigger("b")
	d.Trigger("c")
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool { return len(r.values()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"c"}, r.values())
	assert.False(t, d.Pending())
}

func TestDebouncer_MaxWait(t *testing.T) {
	var r recorder
	d := NewDebouncer(50*time.Millisecond, 120*time.Millisecond, r.fire)

	stop := time.After(400 * time.Millisecond)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	i := 0
loop:
	for {
		select {
		case <-tick.C:
			i++
			d.Trigger(string(rune('a' + i%26)))
		case <-stop:
			break loop
		}
	}
	d.Cancel()

	// A steady stream never goes quiet, so only the max wait can fire.
	assert.GreaterOrEqual(t, len(r.values()), 2)
}

func TestDebouncer_FlushAndCancel(t *testing.T) {
	var r recorder
	d := NewDebouncer(time.Hour, time.Hour, r.fire)

	d.Flush()
	assert.Empty(t, r.values())

	d.Trigger("x")
	d.Flush()
	assert.Equal(t, []string{"x"}, r.values())

	d.Trigger("y")
	d.Cancel()
	assert.False(t, d.Pending())
	assert.Equal(t, []string{"x"}, r.values())
}

func TestDebouncer_StopFlushesAndIgnores(t *testing.T) {
	var r recorder
	d := NewDebouncer(time.Hour, time.Hour, r.fire)
	d.Trigger("last")
	d.Stop()
	d.Trigger("ignored")
	assert.Equal(t, []string{"last"}, r.values())
	assert.False(t, d.Pending())
}

func TestDebouncer_Defaults(t *testing.T) {
	d := NewDebouncer[int](0, 0, func(int) {})
	assert.Equal(t, DefaultQuietPeriod, d.quiet)
	assert.Equal(t, DefaultMaxWait, d.maxWait)
}
