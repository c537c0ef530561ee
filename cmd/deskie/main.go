package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sevlyar/go-daemon"

	"deskie/internal/app"
	"deskie/internal/config"
	"deskie/internal/display"
)

var (
	configPath = flag.String("c", "", "Path to configuration file (e.g., config.yaml). Defaults to ./config.yaml, ~/.config/deskie/config.yaml, /etc/deskie/config.yaml")
	logPath    = flag.String("log", "", "Path to log file (optional, defaults to stderr)")
	daemonize  = flag.Bool("d", false, "Run in the background")
	pidFile    = flag.String("pid", "/tmp/deskie.pid", "PID file used with -d")
	withUI     = flag.Bool("ui", false, "Show the terminal dashboard")
)

// setupLogging configures the log output destination.
func setupLogging(logFilePath string, quiet bool) (*os.File, error) {
	if logFilePath == "" {
		if quiet {
			// The dashboard owns the terminal
			log.SetOutput(io.Discard)
			return nil, nil
		}
		log.SetOutput(os.Stderr)
		log.Println("Logging to stderr")
		return nil, nil
	}

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	log.SetOutput(file)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Printf("Logging to file: %s", logFilePath)
	return file, nil
}

func main() {
	flag.Parse()

	if *daemonize && *withUI {
		fmt.Fprintln(os.Stderr, "-d and -ui cannot be combined")
		os.Exit(2)
	}

	if *daemonize {
		cntxt := &daemon.Context{
			PidFileName: *pidFile,
			PidFilePerm: 0644,
			WorkDir:     "./",
			Umask:       027,
			Args:        os.Args,
		}
		child, err := cntxt.Reborn()
		if err != nil {
			log.Fatalf("FATAL: Failed to daemonize: %v", err)
		}
		if child != nil {
			fmt.Printf("Deskie started in background (pid %d)\n", child.Pid)
			return
		}
		defer cntxt.Release()
	}

	logFile, logErr := setupLogging(*logPath, *withUI)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Error setting up file logging: %v. Logging to stderr instead.\n", logErr)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create application: %v", err)
	}
	config.Watch(application.ApplyConfig)

	if !*withUI {
		if err := application.Run(); err != nil {
			log.Fatalf("FATAL: Application exited with error: %v", err)
		}
		log.Println("Deskie finished successfully.")
		return
	}

	runErr := make(chan error, 1)
	go func() { runErr <- application.Run() }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-application.Done()
		cancel()
	}()
	if err := display.NewDashboard(application).Run(ctx); err != nil {
		log.Printf("Dashboard error: %v", err)
	}
	application.Stop()

	if err := <-runErr; err != nil {
		fmt.Fprintf(os.Stderr, "Deskie exited with error: %v\n", err)
		os.Exit(1)
	}
}
