package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Concurrent(t *testing.T) {
	c := NewClock()
	assert.Zero(t, c.Current())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(400), c.Current())
}

func TestSession_CommandSeq(t *testing.T) {
	s := NewSession(fixtureDoc(), fixtureNodes(), testOptions()...)

	first, err := s.ToggleStar("A")
	require.NoError(t, err)
	second, err := s.ToggleStar("B")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, int64(2), undone.Seq, "undo keeps the command's seq")

	third, err := s.ToggleStar("S")
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.Seq)
}
