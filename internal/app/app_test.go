package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskie/internal/actuator"
	"deskie/internal/config"
	"deskie/internal/event"
	"deskie/internal/ipc"
	"deskie/internal/mode"
	"deskie/internal/presence"
	"deskie/internal/sensor"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	alerts []presence.AwayAlert
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, a presence.AwayAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir, err := os.MkdirTemp("", "dk")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	return &config.Config{
		DatabasePath:        ":memory:",
		SocketPath:          filepath.Join(dir, "d.sock"),
		PollIntervalSeconds: 1,
		InitialMode:         "Off",
		NearDistanceCm:      50,
		FarDistanceCm:       600,
		Modes: map[string]config.ModeConfig{
			"work":  {AwayLimitSeconds: 0, ReminderIntervalSeconds: 1200},
			"study": {AwayLimitSeconds: 300, ReminderIntervalSeconds: 1200},
			"other": {AwayLimitSeconds: 15, ReminderIntervalSeconds: 300},
		},
		Hardware: config.HardwareConfig{Driver: "sim", EchoTimeoutMillis: 100},
		Webhook:  config.WebhookConfig{TimeoutSeconds: 1},
		Comfort:  config.ComfortConfig{TempMin: 20, TempMax: 25, HumidityMin: 30, HumidityMax: 60},
	}
}

var fastTimings = actuator.Timings{
	Buzz:          time.Millisecond,
	WaveStep:      time.Millisecond,
	ReminderFlash: time.Millisecond,
}

func newTestApp(t *testing.T) (*App, *sensor.Simulated, *fakeClock, *recordingSink) {
	t.Helper()
	sim := sensor.NewSimulated(false, 80, 22, 45)
	clk := &fakeClock{t: time.Now()}
	sink := &recordingSink{}

	a, err := NewApp(testConfig(t),
		WithHardware(Hardware{Motion: sim, Distance: sim, Climate: sim, Outputs: actuator.SimOutputs()}),
		WithClock(clk.Now),
		WithTimings(fastTimings),
		WithSinks(sink))
	require.NoError(t, err)
	a.startWorkers()
	t.Cleanup(a.cleanup)
	return a, sim, clk, sink
}

func eventsOfType(t *testing.T, a *App, typ event.EventType) []event.Event {
	t.Helper()
	data, err := a.Events(context.Background(), time.Hour)
	require.NoError(t, err)
	var out []event.Event
	for _, e := range data.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestAwayAlertInOtherMode(t *testing.T) {
	a, sim, clk, sink := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.SetMode(ctx, "other"))
	sim.SetDistance(700)

	clk.Advance(10 * time.Second)
	a.poll()
	assert.Empty(t, eventsOfType(t, a, event.EventTypeAwayAlert))

	clk.Advance(6 * time.Second)
	a.poll()

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, mode.Other, sink.alerts[0].Mode)
	assert.Equal(t, 16*time.Second, sink.alerts[0].Duration)

	alerts := eventsOfType(t, a, event.EventTypeAwayAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Other", alerts[0].Mode)
	assert.InDelta(t, 16.0, alerts[0].Value, 0.001)

	status, err := a.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.AtDesk)
	require.NotNil(t, status.AwaySince)
	assert.Equal(t, 1, status.AwayCounts["Other"])
	assert.InDelta(t, 16.0/60.0, status.AwayAverageMins["Other"], 0.001)
}

func TestMotionKeepsStationQuiet(t *testing.T) {
	a, sim, clk, sink := newTestApp(t)
	require.NoError(t, a.SetMode(context.Background(), "Other"))
	sim.SetDistance(700)
	sim.SetMotion(true)

	for i := 0; i < 5; i++ {
		clk.Advance(10 * time.Second)
		a.poll()
	}
	assert.Zero(t, sink.count())
	assert.Empty(t, eventsOfType(t, a, event.EventTypeAwayAlert))
}

func TestMissingDistanceSkipsAwayDetection(t *testing.T) {
	a, sim, clk, sink := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.SetMode(ctx, "other"))
	sim.SetDistance(0)

	clk.Advance(time.Hour)
	a.poll()

	assert.Zero(t, sink.count())
	status, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, status.DistanceCm)
	assert.Nil(t, status.AwaySince)
}

func TestSetMode(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	ctx := context.Background()

	err := a.SetMode(ctx, "gaming")
	assert.ErrorIs(t, err, mode.ErrUnknownMode)
	assert.Equal(t, mode.Off, a.evaluator.Mode())

	require.NoError(t, a.SetMode(ctx, "study"))
	first, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Study", first.Mode)
	assert.Equal(t, 300.0, first.AwayLimitSecs)
	assert.NotNil(t, first.NextReminder)
	assert.NotEmpty(t, first.Session)

	require.NoError(t, a.SetMode(ctx, "off"))
	second, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Off", second.Mode)
	assert.Nil(t, second.NextReminder)
	assert.NotEqual(t, first.Session, second.Session)

	assert.Len(t, eventsOfType(t, a, event.EventTypeModeChange), 2)
	// Study fires its first reminder as soon as the mode is set.
	require.Eventually(t, func() bool {
		return len(eventsOfType(t, a, event.EventTypeReminder)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestComfortWarningJournaledOnChange(t *testing.T) {
	a, sim, clk, _ := newTestApp(t)
	sim.SetClimate(30, 45, true)

	a.poll()
	clk.Advance(2 * time.Second)
	a.poll()

	warnings := eventsOfType(t, a, event.EventTypeComfortWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, 1.0, warnings[0].Value)
	assert.Contains(t, warnings[0].Notes, "temperature 30.0")

	sim.SetClimate(22, 45, true)
	clk.Advance(2 * time.Second)
	a.poll()
	sim.SetClimate(22, 70, true)
	clk.Advance(2 * time.Second)
	a.poll()
	assert.Len(t, eventsOfType(t, a, event.EventTypeComfortWarning), 2)
}

func TestAwayFeedbackPlaysWhileClimateOutOfRange(t *testing.T) {
	sim := sensor.NewSimulated(false, 700, 30, 70)
	clk := &fakeClock{t: time.Now()}
	sink := &recordingSink{}
	a, err := NewApp(testConfig(t),
		WithHardware(Hardware{Motion: sim, Distance: sim, Climate: sim, Outputs: actuator.SimOutputs()}),
		WithClock(clk.Now),
		WithTimings(actuator.Timings{Buzz: 40 * time.Millisecond, WaveStep: time.Millisecond, ReminderFlash: time.Millisecond}),
		WithSinks(sink))
	require.NoError(t, err)
	a.startWorkers()
	t.Cleanup(a.cleanup)

	require.NoError(t, a.SetMode(context.Background(), "Other"))
	for i := 0; i < 9; i++ {
		clk.Advance(2 * time.Second)
		a.poll()
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return a.station.Played(actuator.AwayFeedback) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, a.station.Played(actuator.ComfortWarning), 1)
}

func TestProcessCommand(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	ctx := context.Background()

	resp := a.processCommand(ctx, ipc.Command{Name: ipc.CmdPing})
	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Message)

	resp = a.processCommand(ctx, ipc.Command{Name: ipc.CmdSetMode, Args: map[string]interface{}{"mode": "Work"}})
	assert.True(t, resp.Success, resp.Message)
	assert.Equal(t, mode.Work, a.evaluator.Mode())

	resp = a.processCommand(ctx, ipc.Command{Name: ipc.CmdSetMode, Args: map[string]interface{}{"mode": "Nap"}})
	assert.False(t, resp.Success)

	resp = a.processCommand(ctx, ipc.Command{Name: ipc.CmdGetEvents, Args: map[string]interface{}{"since": "soon"}})
	assert.False(t, resp.Success)

	resp = a.processCommand(ctx, ipc.Command{Name: "reboot"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Unknown command")
}

func TestRunServesCommands(t *testing.T) {
	cfg := testConfig(t)
	sim := sensor.NewSimulated(false, 80, 22, 45)
	a, err := NewApp(cfg,
		WithHardware(Hardware{Motion: sim, Distance: sim, Climate: sim, Outputs: actuator.SimOutputs()}),
		WithTimings(fastTimings))
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run() }()

	client := ipc.NewClient(cfg.SocketPath)
	ctx := context.Background()
	require.Eventually(t, func() bool { return client.Ping(ctx) == nil }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, client.SetMode(ctx, "study"))
	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Study", status.Mode)
	assert.Equal(t, 1200.0, status.ReminderIntervalSecs)

	assert.Error(t, client.SetMode(ctx, "gaming"))

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.Stats)

	events, err := client.Events(ctx, time.Hour)
	require.NoError(t, err)
	var types []event.EventType
	for _, e := range events.Events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, event.EventTypeAppStart)
	assert.Contains(t, types, event.EventTypeModeChange)

	a.Stop()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	_, err = os.Stat(cfg.SocketPath)
	assert.True(t, os.IsNotExist(err), "socket removed on shutdown")
}
