package sensor

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

type recordingTrigger struct {
	levels []gpio.Level
}

func (r *recordingTrigger) Out(l gpio.Level) error {
	r.levels = append(r.levels, l)
	return nil
}

// scriptedEcho replays a pulse: each WaitForEdge pops the next edge and
// advances the shared clock by its delay.
type scriptedEcho struct {
	level gpio.Level
	edges []time.Duration
	clock *time.Time
}

func (e *scriptedEcho) Read() gpio.Level { return e.level }

func (e *scriptedEcho) WaitForEdge(timeout time.Duration) bool {
	if len(e.edges) == 0 || e.edges[0] > timeout {
		*e.clock = e.clock.Add(timeout)
		return false
	}
	*e.clock = e.clock.Add(e.edges[0])
	e.edges = e.edges[1:]
	e.level = !e.level
	return true
}

func newTestHCSR04(echo *scriptedEcho, clock *time.Time) (*HCSR04, *recordingTrigger) {
	trig := &recordingTrigger{}
	h := NewHCSR04(trig, echo, 100*time.Millisecond)
	h.sleep = func(time.Duration) {}
	h.now = func() time.Time { return *clock }
	return h, trig
}

func TestHCSR04Distance(t *testing.T) {
	clock := time.Unix(0, 0)
	echo := &scriptedEcho{level: gpio.Low, edges: []time.Duration{500 * time.Microsecond, 2 * time.Millisecond}, clock: &clock}
	h, trig := newTestHCSR04(echo, &clock)

	d, err := h.Distance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 34.3, d, 0.01)
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High, gpio.Low}, trig.levels)
}

func TestHCSR04TimesOutWaitingForStart(t *testing.T) {
	clock := time.Unix(0, 0)
	echo := &scriptedEcho{level: gpio.Low, clock: &clock}
	h, _ := newTestHCSR04(echo, &clock)

	_, err := h.Distance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEchoTimeout))
}

func TestHCSR04EchoAlreadyHighReadsShort(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	clock := time.Unix(0, 0)
	echo := &scriptedEcho{level: gpio.High, edges: []time.Duration{time.Millisecond}, clock: &clock}
	h, _ := newTestHCSR04(echo, &clock)

	d, err := h.Distance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 17.15, d, 0.01)
	assert.Contains(t, buf.String(), "distance may read short")
}

func TestHCSR04TimesOutOnStuckEcho(t *testing.T) {
	clock := time.Unix(0, 0)
	echo := &scriptedEcho{level: gpio.High, clock: &clock}
	h, _ := newTestHCSR04(echo, &clock)

	_, err := h.Distance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEchoTimeout))
	assert.Equal(t, 100*time.Millisecond, clock.Sub(time.Unix(0, 0)), "bounded by a single timeout")
}

func TestHCSR04StopsOnCancelledContext(t *testing.T) {
	clock := time.Unix(0, 0)
	echo := &scriptedEcho{level: gpio.Low, clock: &clock}
	h, trig := newTestHCSR04(echo, &clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Distance(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []gpio.Level{gpio.Low}, trig.levels)
}

type levelPin gpio.Level

func (p levelPin) Read() gpio.Level { return gpio.Level(p) }

func TestPIR(t *testing.T) {
	on, err := NewPIR(levelPin(gpio.High)).Motion()
	require.NoError(t, err)
	assert.True(t, on)

	on, err = NewPIR(levelPin(gpio.Low)).Motion()
	require.NoError(t, err)
	assert.False(t, on)
}

func writeIIO(t *testing.T, dir, name, value string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(value), 0644))
}

func TestDHT11ReadsIIO(t *testing.T) {
	dir := t.TempDir()
	writeIIO(t, dir, "in_temp_input", "23400\n")
	writeIIO(t, dir, "in_humidityrelative_input", "41000\n")

	h, temp, err := NewDHT11(dir).Climate()
	require.NoError(t, err)
	assert.InDelta(t, 23.4, temp, 0.001)
	assert.InDelta(t, 41.0, h, 0.001)
}

func TestDHT11MissingOrGarbled(t *testing.T) {
	dir := t.TempDir()
	_, _, err := NewDHT11(dir).Climate()
	assert.Error(t, err)

	writeIIO(t, dir, "in_temp_input", "23400")
	writeIIO(t, dir, "in_humidityrelative_input", "oops")
	_, _, err = NewDHT11(dir).Climate()
	assert.Error(t, err)
}

func TestReaderFoldsFailuresIntoNil(t *testing.T) {
	sim := NewSimulated(true, 0, 0, 0)
	sim.SetClimate(0, 0, false)

	var failed []string
	r := NewReader(sim, sim, sim, func(name string, err error) { failed = append(failed, name) })

	s := r.Read(context.Background())
	assert.True(t, s.Motion)
	assert.Nil(t, s.DistanceCm)
	assert.Nil(t, s.Temperature)
	assert.Nil(t, s.Humidity)
	assert.Equal(t, []string{"distance", "climate"}, failed)
}

func TestReaderReturnsValues(t *testing.T) {
	sim := NewSimulated(false, 650, 22.5, 45)
	r := NewReader(sim, sim, sim, nil)

	s := r.Read(context.Background())
	assert.False(t, s.Motion)
	require.NotNil(t, s.DistanceCm)
	assert.Equal(t, 650.0, *s.DistanceCm)
	require.NotNil(t, s.Temperature)
	assert.Equal(t, 22.5, *s.Temperature)
	require.NotNil(t, s.Humidity)
	assert.Equal(t, 45.0, *s.Humidity)
	assert.False(t, s.At.IsZero())
}
