package atomicx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crossroads-io/xscore/atomicx"
)

func TestValueZeroDefault(t *testing.T) {
	v := atomicx.NewValue[int]()
	assert.Equal(t, 0, v.Load())
	v.Store(42)
	assert.Equal(t, 42, v.Load())
}

func TestValueDefaultFallback(t *testing.T) {
	v := atomicx.NewValueDefault("idle")
	assert.Equal(t, "idle", v.Load())
	v.Store("busy")
	assert.Equal(t, "busy", v.Load())
}

func TestValueSwap(t *testing.T) {
	v := atomicx.NewValueDefault(1)
	old := v.Swap(2)
	assert.Equal(t, 1, old)
	assert.Equal(t, 2, v.Load())
	old = v.Swap(3)
	assert.Equal(t, 2, old)
}
