package mode

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Mode{
		"Work":    Work,
		"study":   Study,
		" OTHER ": Other,
		"off":     Off,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := Parse("gaming")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestDefaultPolicyLookup(t *testing.T) {
	p := DefaultPolicy()

	work, ok := p.Lookup(Work)
	require.True(t, ok)
	assert.False(t, work.AwayDetection(), "work mode never raises away alerts")
	assert.Equal(t, 20*time.Minute, work.ReminderInterval)

	study, ok := p.Lookup(Study)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, study.AwayLimit)

	other, ok := p.Lookup(Other)
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, other.AwayLimit)
	assert.Equal(t, 5*time.Minute, other.ReminderInterval)

	_, ok = p.Lookup(Off)
	assert.False(t, ok)

	_, ok = p.Lookup(Mode("Gaming"))
	assert.False(t, ok)
}

func TestPolicyOffIgnoresTableEntry(t *testing.T) {
	p := Policy{Off: {AwayLimit: time.Second}}
	_, ok := p.Lookup(Off)
	assert.False(t, ok)
}

func TestClone(t *testing.T) {
	p := DefaultPolicy()
	c := p.Clone()
	c[Study] = Settings{}
	assert.Equal(t, 5*time.Minute, p[Study].AwayLimit)
}
