package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock_Advances(t *testing.T) {
	c := NewStepClock(time.Time{}, 0)
	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Second), c.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), c.Peek())
}

func TestStepClock_Reset(t *testing.T) {
	start := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	c := NewStepClock(start, time.Minute)
	c.Now()
	c.Now()
	c.Reset()
	assert.Equal(t, start, c.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	c := NewStepClock(time.Time{}, time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, Epoch.Add(50*time.Millisecond), c.Peek())
}

func TestSequenceIDs(t *testing.T) {
	g := NewSequenceIDs("")
	assert.Equal(t, "n1", g.Generate())
	assert.Equal(t, "n2", g.Generate())
	g.Reset()
	assert.Equal(t, "n1", g.Generate())

	assert.Equal(t, "copy1", NewSequenceIDs("copy").Generate())
}

func TestNodeFixture(t *testing.T) {
	n := Node("X", "P1", 0, "P2", 3)
	assert.Equal(t, IDs("P1", "P2"), n.ParentIDs)
	assert.Equal(t, []int64{0, 3}, n.Order)
	assert.True(t, n.IsClone())

	tmpl, ok := SampleTemplates().TemplateByID("task")
	assert.True(t, ok)
	assert.Equal(t, "t-title", tmpl.TitleFieldID())
}
