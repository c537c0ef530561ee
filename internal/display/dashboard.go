// Package display is the terminal dashboard. It reads from any Source, so
// the same screen runs inside the daemon or against its socket.
package display

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"deskie/internal/ipc"
	"deskie/internal/mode"
)

const (
	readingsRefresh = 2 * time.Second
	chartRefresh    = 10 * time.Second
	requestTimeout  = time.Second
	chartWidth      = 30
)

type Source interface {
	Status(ctx context.Context) (ipc.StatusData, error)
	SetMode(ctx context.Context, name string) error
}

type Dashboard struct {
	src Source
	app *tview.Application

	modes    *tview.List
	status   *tview.TextView
	temp     *tview.TextView
	humidity *tview.TextView
	presence *tview.TextView
	chart    *tview.TextView
}

func NewDashboard(src Source) *Dashboard {
	d := &Dashboard{
		src:      src,
		app:      tview.NewApplication(),
		modes:    tview.NewList(),
		status:   textBox("Status"),
		temp:     textBox("Temperature"),
		humidity: textBox("Humidity"),
		presence: textBox("Presence"),
		chart:    textBox("Average away time"),
	}

	d.modes.ShowSecondaryText(false).SetBorder(true).SetTitle("Mode")
	for i, m := range mode.All() {
		d.modes.AddItem(string(m), "", rune('1'+i), func() { d.selectMode(m) })
	}
	d.modes.AddItem("Quit", "", 'q', d.app.Stop)

	readings := tview.NewFlex().
		AddItem(d.temp, 0, 1, false).
		AddItem(d.humidity, 0, 1, false).
		AddItem(d.presence, 0, 1, false)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.status, 6, 0, false).
		AddItem(readings, 7, 0, false).
		AddItem(d.chart, 0, 1, false)

	root := tview.NewFlex().
		AddItem(d.modes, 20, 0, true).
		AddItem(right, 0, 1, false)

	d.app.SetRoot(root, true).SetFocus(d.modes)
	d.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape {
			d.app.Stop()
			return nil
		}
		return ev
	})
	return d
}

func textBox(title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBorder(true).SetTitle(title)
	return tv
}

func (d *Dashboard) selectMode(m mode.Mode) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := d.src.SetMode(ctx, string(m)); err != nil {
			d.app.QueueUpdateDraw(func() {
				d.status.SetText(fmt.Sprintf("[red]Mode change failed:[-] %v", err))
			})
			return
		}
		d.refresh(true)
	}()
}

// Run blocks until the user quits or ctx is cancelled.
func (d *Dashboard) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		d.app.Stop()
	}()
	go d.refreshLoop(ctx)

	return d.app.Run()
}

func (d *Dashboard) refreshLoop(ctx context.Context) {
	readings := time.NewTicker(readingsRefresh)
	defer readings.Stop()
	chart := time.NewTicker(chartRefresh)
	defer chart.Stop()

	d.refresh(true)
	for {
		select {
		case <-ctx.Done():
			return
		case <-readings.C:
			d.refresh(false)
		case <-chart.C:
			d.refresh(true)
		}
	}
}

func (d *Dashboard) refresh(withChart bool) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	s, err := d.src.Status(ctx)
	if err != nil {
		log.Printf("Dashboard refresh failed: %v", err)
		d.app.QueueUpdateDraw(func() {
			d.status.SetText(fmt.Sprintf("[red]Unavailable:[-] %v", err))
		})
		return
	}

	d.app.QueueUpdateDraw(func() {
		d.status.SetText(StatusText(s))
		d.temp.SetText(Reading(s.Temperature, " °C"))
		d.humidity.SetText(Reading(s.Humidity, " %"))
		d.presence.SetText(PresenceText(s))
		if withChart {
			d.chart.SetText(RenderChart(s.AwayAverageMins, chartWidth))
		}
	})
}
