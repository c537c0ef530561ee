package comfort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestCheckBoundsAreInclusive(t *testing.T) {
	b := DefaultBounds()

	r, ok := b.Check(f(20), f(60))
	assert.True(t, ok)
	assert.Equal(t, Result{TempOK: true, HumidityOK: true}, r)
	assert.Zero(t, r.Warnings())

	r, _ = b.Check(f(25), f(30))
	assert.Zero(t, r.Warnings())

	r, _ = b.Check(f(25.1), f(29.9))
	assert.Equal(t, Result{}, r)
	assert.Equal(t, 2, r.Warnings())

	r, _ = b.Check(f(19.9), f(45))
	assert.Equal(t, Result{HumidityOK: true}, r)
	assert.Equal(t, 1, r.Warnings())
}

func TestCheckNeedsBothReadings(t *testing.T) {
	b := DefaultBounds()
	_, ok := b.Check(nil, f(40))
	assert.False(t, ok)
	_, ok = b.Check(f(22), nil)
	assert.False(t, ok)
}
