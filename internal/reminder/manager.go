package reminder

import (
	"context"
	"log"
	"sync"
	"time"

	"deskie/internal/mode"
)

// FireFunc is called from the manager goroutine each time a reminder is due.
type FireFunc func(m mode.Mode)

// Manager runs at most one repeating reminder. Scheduling a new one always
// cancels the previous one first.
type Manager struct {
	fire    FireFunc
	cmdChan chan interface{}

	ticker   *time.Ticker
	mu       sync.RWMutex
	active   mode.Mode
	interval time.Duration
	nextAt   time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// --- Command Types ---
type scheduleCmd struct {
	Mode     mode.Mode
	Interval time.Duration
	ack      chan struct{}
}

type cancelCmd struct {
	ack chan struct{}
}

func NewManager(fire FireFunc) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		fire:    fire,
		cmdChan: make(chan interface{}, 10),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (m *Manager) Start() {
	log.Println("Starting reminder manager")
	go m.runLoop()
}

// Stop cancels any pending reminder and waits for the loop to exit.
func (m *Manager) Stop() {
	log.Println("Stopping reminder manager")
	m.cancel()
	<-m.done
}

// Schedule replaces the running reminder. The first reminder fires right
// away, then every interval. It returns once the old reminder is cancelled.
func (m *Manager) Schedule(md mode.Mode, interval time.Duration) {
	if interval <= 0 {
		m.Cancel()
		return
	}
	m.send(scheduleCmd{Mode: md, Interval: interval, ack: make(chan struct{})})
}

// Cancel stops the running reminder, if any.
func (m *Manager) Cancel() {
	m.send(cancelCmd{ack: make(chan struct{})})
}

func (m *Manager) send(cmd interface{}) {
	var ack chan struct{}
	switch c := cmd.(type) {
	case scheduleCmd:
		ack = c.ack
	case cancelCmd:
		ack = c.ack
	}
	select {
	case m.cmdChan <- cmd:
	case <-m.ctx.Done():
		return
	}
	select {
	case <-ack:
	case <-m.ctx.Done():
	}
}

// Active returns the mode and interval of the running reminder.
func (m *Manager) Active() (mode.Mode, time.Duration, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, m.interval, m.nextAt
}

func (m *Manager) runLoop() {
	defer close(m.done)
	defer log.Println("Reminder manager loop stopped.")

	for {
		var tick <-chan time.Time
		if m.ticker != nil {
			tick = m.ticker.C
		}

		select {
		case <-m.ctx.Done():
			m.stopActive()
			return

		case cmd := <-m.cmdChan:
			m.handleCommand(cmd)

		case <-tick:
			m.mu.Lock()
			md := m.active
			m.nextAt = time.Now().Add(m.interval)
			m.mu.Unlock()
			m.fireReminder(md)
		}
	}
}

func (m *Manager) handleCommand(cmd interface{}) {
	switch c := cmd.(type) {
	case scheduleCmd:
		m.stopActive()
		log.Printf("Reminder scheduled for %s every %s", c.Mode, c.Interval)
		m.ticker = time.NewTicker(c.Interval)
		m.mu.Lock()
		m.active = c.Mode
		m.interval = c.Interval
		m.nextAt = time.Now().Add(c.Interval)
		m.mu.Unlock()
		close(c.ack)
		m.fireReminder(c.Mode)

	case cancelCmd:
		m.stopActive()
		close(c.ack)

	default:
		log.Printf("Warning: Unknown command received in reminder manager: %T", c)
	}
}

func (m *Manager) fireReminder(md mode.Mode) {
	if m.fire != nil {
		m.fire(md)
	}
}

func (m *Manager) stopActive() {
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
		log.Println("Reminder cancelled.")
	}
	m.mu.Lock()
	m.active = ""
	m.interval = 0
	m.nextAt = time.Time{}
	m.mu.Unlock()
}
