package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"deskie/internal/actuator"
	"deskie/internal/alert"
	"deskie/internal/board"
	"deskie/internal/comfort"
	"deskie/internal/config"
	"deskie/internal/event"
	"deskie/internal/ipc"
	"deskie/internal/metrics"
	"deskie/internal/mode"
	"deskie/internal/presence"
	"deskie/internal/reminder"
	"deskie/internal/sensor"
	"deskie/internal/storage"
	"deskie/internal/telemetry"

	sqlitestore "deskie/internal/storage/sqlite"
)

const (
	shutdownWait   = 5 * time.Second
	journalTimeout = 2 * time.Second
)

// Hardware is everything the station reads from or drives.
type Hardware struct {
	Motion   sensor.MotionSensor
	Distance sensor.DistanceSensor
	Climate  sensor.ClimateSensor
	Outputs  actuator.Outputs
	Close    func() error
}

type App struct {
	cfg       *config.Config
	storage   storage.Storage
	evaluator *presence.Evaluator
	reader    *sensor.Reader
	station   *actuator.Station
	reminders *reminder.Manager
	telemetry *telemetry.Publisher
	sinks     alert.Fanout
	hw        Hardware
	bounds    comfort.Bounds
	clock     presence.Clock
	timings   actuator.Timings
	startedAt time.Time

	// --- Socket Handling ---
	socketPath string
	listener   *net.UnixListener

	wg     conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	modeMu sync.Mutex

	// Latest sample and session for the status command
	statusMu    sync.RWMutex
	latest      sensor.Sample
	session     string
	lastComfort *comfort.Result

	started     bool
	cleanupOnce sync.Once
}

type Option func(*App)

// WithHardware replaces the driver selected in the config.
func WithHardware(hw Hardware) Option {
	return func(a *App) { a.hw = hw }
}

func WithClock(c presence.Clock) Option {
	return func(a *App) { a.clock = c }
}

func WithTimings(t actuator.Timings) Option {
	return func(a *App) { a.timings = t }
}

// WithSinks adds alert sinks next to the configured ones.
func WithSinks(sinks ...alert.Sink) Option {
	return func(a *App) { a.sinks = append(a.sinks, sinks...) }
}

func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:        cfg,
		socketPath: cfg.SocketPath,
		bounds:     cfg.ComfortBounds(),
		clock:      time.Now,
		timings:    actuator.DefaultTimings(),
		ctx:        ctx,
		cancel:     cancel,
	}
	if a.socketPath == "" {
		a.socketPath = ipc.DefaultSocketPath
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startedAt = a.clock()

	// Initialize Storage
	a.storage = sqlitestore.NewSQLiteStore(cfg.DatabasePath)
	if err := a.storage.Init(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize hardware, falling back to the simulator when GPIO is unavailable
	if a.hw.Motion == nil {
		hw, err := openHardware(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize GPIO: %v. Using simulated hardware.", err)
			hw = simHardware(cfg.Hardware.Sim)
		}
		a.hw = hw
	}

	a.evaluator = presence.NewEvaluator(cfg.Policy(),
		presence.WithClock(a.clock),
		presence.WithThresholds(cfg.Thresholds()))
	a.reader = sensor.NewReader(a.hw.Motion, a.hw.Distance, a.hw.Climate, a.sensorError)
	a.station = actuator.NewStation(a.hw.Outputs, a.timings)
	a.reminders = reminder.NewManager(a.fireReminder)

	if cfg.Webhook.URL != "" {
		a.sinks = append(a.sinks, alert.NewWebhook(cfg.Webhook.URL, alert.NewHTTPClient(cfg.WebhookTimeout())))
	} else {
		log.Println("Webhook URL not set, webhook alerts disabled.")
	}

	// Initialize MQTT telemetry
	if cfg.MQTT.Broker != "" {
		pub, err := telemetry.Connect(cfg.TelemetryConfig())
		if err != nil {
			log.Printf("Warning: Failed to connect MQTT: %v. Telemetry disabled.", err)
		} else {
			a.telemetry = pub
			a.sinks = append(a.sinks, pub)
		}
	}

	return a, nil
}

func openHardware(cfg *config.Config) (Hardware, error) {
	if cfg.Hardware.Driver == "sim" {
		return simHardware(cfg.Hardware.Sim), nil
	}
	if err := board.Init(); err != nil {
		return Hardware{}, err
	}
	b := board.New()
	pir, hc, dht, err := b.Sensors(cfg.Hardware, cfg.EchoTimeout())
	if err != nil {
		b.Close()
		return Hardware{}, err
	}
	out, err := b.Outputs(cfg.Hardware.Pins)
	if err != nil {
		b.Close()
		return Hardware{}, err
	}
	return Hardware{Motion: pir, Distance: hc, Climate: dht, Outputs: out, Close: b.Close}, nil
}

func simHardware(sc config.SimConfig) Hardware {
	sim := sensor.NewSimulated(sc.Motion, sc.DistanceCm, sc.Temperature, sc.Humidity)
	return Hardware{Motion: sim, Distance: sim, Climate: sim, Outputs: actuator.SimOutputs()}
}

// startWorkers launches the actuator worker, the reminder manager and the
// telemetry publisher.
func (a *App) startWorkers() {
	a.started = true
	a.station.Start()
	a.reminders.Start()
	if a.telemetry != nil {
		a.wg.Go(func() { a.telemetry.Start(a.ctx) })
	}
}

func (a *App) Run() error {
	defer a.cleanup()

	log.Println("Starting Deskie station...")
	log.Printf("Hardware driver: %s, poll interval: %s", a.cfg.Hardware.Driver, a.cfg.PollInterval())

	if err := a.setupSocket(); err != nil {
		return fmt.Errorf("failed to set up socket: %w", err)
	}

	a.handleSignals()
	a.startWorkers()

	a.journal(event.EventTypeAppStart, mode.Off, 0, "")

	initial, err := mode.Parse(a.cfg.InitialMode)
	if err != nil {
		initial = mode.Off
	}
	a.applyMode(initial)

	a.wg.Go(a.monitorLoop)
	a.wg.Go(a.listenForCommands)

	if a.cfg.MetricsListen != "" {
		a.wg.Go(func() {
			if err := metrics.Serve(a.ctx, a.cfg.MetricsListen, a.Status); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		})
	}

	log.Println("Deskie running. Send commands via deskie-cli or socket.")
	<-a.ctx.Done()

	log.Println("Shutdown signal received, waiting for components...")

	// Close the listener before waiting so Accept returns
	if a.listener != nil {
		log.Println("Closing command socket listener...")
		if err := a.listener.Close(); err != nil {
			log.Printf("Error closing socket listener: %v", err)
		}
	}

	waitChan := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitChan)
	}()

	select {
	case <-waitChan:
		log.Println("All application goroutines finished.")
	case <-time.After(shutdownWait):
		log.Println("Warning: Timeout waiting for application goroutines to stop.")
	}

	log.Println("Deskie finished.")
	return nil
}

// Stop asks Run to shut down.
func (a *App) Stop() {
	a.cancel()
}

func (a *App) Done() <-chan struct{} {
	return a.ctx.Done()
}

// ApplyConfig takes the mode table from a reloaded config. New reminder
// intervals apply from the next mode change.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.evaluator.SetPolicy(cfg.Policy())
	log.Println("Mode policy reloaded.")
}

// SetMode switches the station to the named mode.
func (a *App) SetMode(_ context.Context, name string) error {
	m, err := mode.Parse(name)
	if err != nil {
		return err
	}
	a.applyMode(m)
	return nil
}

func (a *App) applyMode(m mode.Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()

	a.evaluator.SetMode(m)
	a.reminders.Cancel()
	a.station.AllOff()

	session := uuid.NewString()
	a.statusMu.Lock()
	a.session = session
	a.lastComfort = nil
	a.statusMu.Unlock()

	settings, _ := a.evaluator.Settings(m)
	if settings.Reminders() {
		a.reminders.Schedule(m, settings.ReminderInterval)
	}

	log.Printf("Mode set to %s (away limit %s, reminders every %s)", m, settings.AwayLimit, settings.ReminderInterval)
	metrics.ModeChange(m)
	a.journal(event.EventTypeModeChange, m, 0, "")
	if a.telemetry != nil {
		if err := a.telemetry.PublishMode(telemetry.ModeMessage{At: a.clock(), Mode: string(m), Session: session}); err != nil {
			log.Printf("Telemetry: %v", err)
		}
	}
}

func (a *App) fireReminder(m mode.Mode) {
	log.Printf("Reminder for %s mode", m)
	a.station.Trigger(actuator.Reminder)
	metrics.Reminder(m)
	a.journal(event.EventTypeReminder, m, 0, "")
}

func (a *App) sensorError(name string, err error) {
	metrics.SensorError(name)
	if errors.Is(err, sensor.ErrEchoTimeout) && !a.cfg.Debug {
		return
	}
	log.Printf("Sensor %s read failed: %v", name, err)
}

func (a *App) journal(t event.EventType, m mode.Mode, value float64, notes string) {
	a.statusMu.RLock()
	session := a.session
	a.statusMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	_, err := a.storage.SaveEvent(ctx, event.Event{
		Timestamp: a.clock(),
		Type:      t,
		Mode:      string(m),
		Session:   session,
		Value:     value,
		Notes:     notes,
	})
	if err != nil {
		log.Printf("Error saving event (Type: %s): %v", t, err)
	}
}

// Status reports the current presence state and readings.
func (a *App) Status(_ context.Context) (ipc.StatusData, error) {
	snap := a.evaluator.Snapshot()

	a.statusMu.RLock()
	latest, session := a.latest, a.session
	a.statusMu.RUnlock()

	status := ipc.StatusData{
		Mode:                 string(snap.Mode),
		Session:              session,
		AtDesk:               snap.AtDesk,
		Motion:               latest.Motion,
		LastMotion:           snap.LastMotion,
		AwaySince:            snap.AwayStart,
		SampledAt:            latest.At,
		DistanceCm:           latest.DistanceCm,
		Temperature:          latest.Temperature,
		Humidity:             latest.Humidity,
		AwayLimitSecs:        snap.Settings.AwayLimit.Seconds(),
		ReminderIntervalSecs: snap.Settings.ReminderInterval.Seconds(),
		AwayAverageMins:      make(map[string]float64, len(snap.Averages)),
		AwayCounts:           make(map[string]int, len(snap.Counts)),
	}
	if _, _, next := a.reminders.Active(); !next.IsZero() {
		status.NextReminder = &next
	}
	for m, avg := range snap.Averages {
		status.AwayAverageMins[string(m)] = avg.Minutes()
	}
	for m, n := range snap.Counts {
		status.AwayCounts[string(m)] = n
	}
	return status, nil
}

// Stats summarises the away alerts journaled since start-up.
func (a *App) Stats(ctx context.Context) (ipc.StatsData, error) {
	stats, err := a.storage.AwayStats(ctx, a.startedAt)
	if err != nil {
		return ipc.StatsData{}, err
	}
	return ipc.StatsData{Since: a.startedAt, Stats: stats}, nil
}

func (a *App) Events(ctx context.Context, since time.Duration) (ipc.EventsData, error) {
	end := a.clock()
	events, err := a.storage.GetEvents(ctx, end.Add(-since), end.Add(time.Second))
	if err != nil {
		return ipc.EventsData{}, err
	}
	return ipc.EventsData{Events: events}, nil
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Printf("Received signal: %v. Initiating shutdown...", sig)
			a.cancel()
		case <-a.ctx.Done():
		}
	}()
}

// cleanup releases the outputs first so the station is safe even if a
// later step hangs.
func (a *App) cleanup() {
	a.cleanupOnce.Do(func() {
		log.Println("Running cleanup...")
		a.cancel()

		a.station.Safe()
		if a.started {
			waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := a.station.Wait(waitCtx); err != nil {
				log.Printf("Warning: actuator worker did not stop: %v", err)
			}
			cancel()
			// The worker may have driven a pin between the two calls.
			a.station.Safe()
			a.reminders.Stop()
		}
		a.journal(event.EventTypeAppStop, a.evaluator.Mode(), 0, "")

		if a.hw.Close != nil {
			if err := a.hw.Close(); err != nil {
				log.Printf("Error releasing hardware: %v", err)
			}
		}
		if a.telemetry != nil {
			a.telemetry.Close()
		}

		if a.storage != nil {
			if err := a.storage.Close(); err != nil {
				log.Printf("Error closing storage: %v", err)
			}
		}

		// Listener is closed in Run() before wg.Wait()
		if a.listener != nil {
			if _, err := os.Stat(a.socketPath); err == nil {
				log.Printf("Removing socket file: %s", a.socketPath)
				if err := os.Remove(a.socketPath); err != nil {
					log.Printf("Warning: Failed to remove socket file %s: %v", a.socketPath, err)
				}
			}
		}

		log.Println("Cleanup finished.")
	})
}
