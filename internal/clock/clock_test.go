package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockAdvanceAndSet(t *testing.T) {
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	clk := NewMock(start)

	assert.Equal(t, start, clk.Now())
	assert.Equal(t, start.Add(time.Hour), clk.Advance(time.Hour))
	assert.Equal(t, start.Add(time.Hour), clk.Now())

	clk.Set(start)
	assert.Equal(t, start, clk.Now())
}

func TestSystemMovesForward(t *testing.T) {
	clk := System()
	a := clk.Now()
	b := clk.Now()
	assert.False(t, b.Before(a))
}
