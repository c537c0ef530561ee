package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"deskie/internal/display"
	"deskie/internal/ipc"
	"deskie/internal/mode"
)

var (
	socketPath string
	asJSON     bool
)

var rootCmd = &cobra.Command{
	Use:           "deskie-cli",
	Short:         "CLI tool to interact with the Deskie daemon",
	Long:          `A command-line interface to query the running Deskie station and switch its mode via its Unix socket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func client() *ipc.Client {
	return ipc.NewClient(socketPath)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if the Deskie daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		if err := client().Ping(ctx); err != nil {
			return fmt.Errorf("%w\nIs the Deskie daemon running?", err)
		}
		fmt.Println("pong")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mode, presence and the latest readings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		s, err := client().Status(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(s)
		}

		fmt.Println(stripTags(display.StatusText(s)))
		fmt.Println(stripTags(display.PresenceText(s)))
		fmt.Printf("Temperature: %s\n", display.Reading(s.Temperature, " °C"))
		fmt.Printf("Humidity: %s\n", display.Reading(s.Humidity, " %"))
		if len(s.AwayAverageMins) > 0 {
			fmt.Println()
			fmt.Println(display.RenderChart(s.AwayAverageMins, 30))
		}
		return nil
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Manage the station mode",
}

var modeSetCmd = &cobra.Command{
	Use:       "set <mode>",
	Short:     "Switch mode (Work, Study, Other, Off)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: modeNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate locally for a friendlier message; the daemon checks again.
		m, err := mode.Parse(args[0])
		if err != nil {
			return fmt.Errorf("%w (use one of %s)", err, strings.Join(modeNames(), ", "))
		}
		ctx, cancel := requestContext()
		defer cancel()
		if err := client().SetMode(ctx, string(m)); err != nil {
			return err
		}
		fmt.Printf("Mode set to %s\n", m)
		return nil
	},
}

func modeNames() []string {
	var names []string
	for _, m := range mode.All() {
		names = append(names, string(m))
	}
	return names
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show away alert statistics per mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		stats, err := client().Stats(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(stats)
		}
		if len(stats.Stats) == 0 {
			fmt.Printf("No away alerts since %s\n", stats.Since.Format(time.DateTime))
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODE\tALERTS\tAVG AWAY\tMAX AWAY")
		for _, st := range stats.Stats {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", st.Mode, st.Count,
				seconds(st.AverageSeconds), seconds(st.MaxSeconds))
		}
		return w.Flush()
	},
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Second)
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List journaled events",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetDuration("since")
		ctx, cancel := requestContext()
		defer cancel()
		data, err := client().Events(ctx, since)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(data)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTYPE\tMODE\tVALUE\tNOTES")
		for _, e := range data.Events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\n",
				e.Timestamp.Format(time.TimeOnly), e.Type, e.Mode, e.Value, e.Notes)
		}
		return w.Flush()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live dashboard against the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return display.NewDashboard(client()).Run(ctx)
	},
}

// stripTags removes tview color tags for plain terminal output.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '[':
			inTag = true
		case r == ']' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", ipc.DefaultSocketPath, "Path to the daemon's command socket")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print raw JSON")

	eventsCmd.Flags().Duration("since", time.Hour, "How far back to list events")

	modeCmd.AddCommand(modeSetCmd)
	rootCmd.AddCommand(pingCmd, statusCmd, modeCmd, statsCmd, eventsCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
