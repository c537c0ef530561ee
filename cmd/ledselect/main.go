package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rivo/tview"

	"deskie/internal/actuator"
	"deskie/internal/board"
	"deskie/internal/ledselect"
)

var simulate = flag.Bool("sim", false, "Log LED changes instead of driving GPIO")

// newForm builds the selector form. No LED is lit until an option is picked.
func newForm(sel *ledselect.Selector, status *tview.TextView, exit func()) *tview.Form {
	var options []string
	for _, c := range ledselect.Colors() {
		options = append(options, string(c))
	}

	status.SetText("Pick an LED")
	form := tview.NewForm().
		AddDropDown("LED", options, -1, func(option string, index int) {
			if index < 0 {
				return
			}
			c, err := ledselect.ParseColor(option)
			if err == nil {
				err = sel.Select(c)
			}
			if err != nil {
				status.SetText(fmt.Sprintf("Error: %v", err))
				return
			}
			status.SetText(option + " is on")
		}).
		AddButton("Exit", exit)
	form.SetBorder(true).SetTitle("LED selector")
	return form
}

func main() {
	flag.Parse()

	leds := map[ledselect.Color]actuator.Switch{}
	release := func() error { return nil }

	if *simulate {
		for _, c := range ledselect.Colors() {
			leds[c] = &actuator.LogSwitch{Name: "led-" + string(c)}
		}
	} else {
		if err := board.Init(); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		b := board.New()
		for _, c := range ledselect.Colors() {
			sw, err := b.Output(ledselect.DefaultPins[c])
			if err != nil {
				b.Close()
				log.Fatalf("FATAL: Failed to open %s LED: %v", c, err)
			}
			leds[c] = sw
		}
		release = b.Close
	}

	sel := ledselect.New(leds)
	app := tview.NewApplication()
	status := tview.NewTextView()
	form := newForm(sel, status, app.Stop)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 0, 1, true).
		AddItem(status, 1, 0, false)

	runErr := app.SetRoot(root, true).SetFocus(form).Run()

	if err := sel.Off(); err != nil {
		log.Printf("Failed to turn LEDs off: %v", err)
	}
	if err := release(); err != nil {
		log.Printf("Failed to release pins: %v", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
