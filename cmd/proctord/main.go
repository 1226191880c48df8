// proctord - Exam-proctoring risk engine over passive interaction signals
//
// proctord infers cheating risk from focus changes, clipboard use, and
// keystroke/mouse cadence without recording content, video, or audio:
//
//	proctord init               Write a default configuration file
//	proctord run                Run a monitoring session
//	proctord validate <file>    Check a dataset file against the schema
//	proctord replay <file>      Score a dataset offline and print the result
//	proctord sessions           List recorded sessions
//	proctord report <id>        Show the snapshot history for a session
//	proctord status             Show configuration and storage status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proctord/internal/activity"
	"proctord/internal/config"
	"proctord/internal/dataset"
	"proctord/internal/logging"
	"proctord/internal/metrics"
	"proctord/internal/monitor"
	"proctord/internal/notify"
	"proctord/internal/risk"
	"proctord/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "init":
		cmdInit()
	case "run":
		cmdRun()
	case "validate":
		cmdValidate()
	case "replay":
		cmdReplay()
	case "sessions":
		cmdSessions()
	case "report":
		cmdReport()
	case "status":
		cmdStatus()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`proctord - Exam-Proctoring Risk Engine

USAGE:
    proctord <command> [options]

COMMANDS:
    init                Write a default configuration file
    run                 Run a monitoring session (simulated sensors or dataset playback)
    validate <file>     Check a dataset file against the import schema
    replay <file>       Score a dataset offline and print the final assessment
    sessions            List recorded sessions
    report <id>         Show snapshot history for a session
    status              Show configuration and storage status
    help                Show this help message

TYPICAL WORKFLOW:
    1. proctord init                          # One-time setup
    2. proctord run -student alice            # Live session with simulated sensors
    3. proctord run -dataset exam.json        # Or: replay an imported dataset live
    4. proctord sessions                      # Find the session ID
    5. proctord report <session-id>           # Review the risk timeline

PRIVACY NOTE:
    proctord scores interaction signals only. It does not record screen
    content, keystrokes' text, video, or audio.`)
}

// countingNotifier forwards high-risk notifications to the configured sinks
// and counts them for the metrics endpoint.
type countingNotifier struct {
	next    notify.Multi
	metrics *metrics.Metrics
}

func (n countingNotifier) HighRisk(e activity.Event, severe bool) {
	severity := "elevated"
	if severe {
		severity = "severe"
	}
	n.metrics.HighRiskTotal.WithLabelValues(severity).Inc()
	n.next.HighRisk(e, severe)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadConfig(path string) *config.Config {
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatal(err)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fatal(err)
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		fatal(err)
	}
	log, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "proctord",
	})
	if err != nil {
		fatal(err)
	}
	logging.SetDefault(log)
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "configuration file path")
	fs.Parse(os.Args[2:])

	if _, err := os.Stat(*configPath); err == nil {
		fatal(fmt.Errorf("config already exists: %s", *configPath))
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(*configPath); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %s\n", *configPath)
}

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	studentID := fs.String("student", "anonymous", "student identity for this session")
	datasetPath := fs.String("dataset", "", "dataset file to play back instead of live sensors")
	simulate := fs.Bool("simulate", false, "force the built-in sensor simulator")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	setupLogging(cfg)

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	m := metrics.New()

	var sinks notify.Multi
	sinks = append(sinks, notify.NewLogNotifier(nil))
	if cfg.Notify.Desktop {
		if desktop, err := notify.NewDesktopNotifier(); err == nil {
			defer desktop.Close()
			sinks = append(sinks, desktop)
		} else {
			logging.Warn("desktop notifications unavailable", "error", err)
		}
	}

	classifierCfg := risk.DefaultClassifierConfig()
	classifierCfg.Notifier = countingNotifier{next: sinks, metrics: m}
	engine := risk.NewEngine(risk.NewClassifier(classifierCfg))

	engine.OnEvent(func(e activity.Event) {
		m.EventsTotal.WithLabelValues(string(e.Type)).Inc()
	})
	engine.Subscribe(func(snap risk.Snapshot) {
		m.CurrentRisk.Set(snap.TotalRiskScore)
		m.MaxRisk.Set(snap.MaxRiskScore)
		m.CopyStreak.Set(float64(snap.Streaks.ConsecutiveCopyAttempts))
		m.FocusStreak.Set(float64(snap.Streaks.ConsecutiveFocusChanges))
		m.EventCount.Set(float64(snap.EventCount))
	})

	mon := monitor.New(engine, monitor.Config{
		StudentID:        *studentID,
		Store:            st,
		SnapshotInterval: time.Duration(cfg.Monitor.SnapshotIntervalSec) * time.Second,
	})

	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(cfg.Metrics.ListenAddr); err != nil {
				logging.Error("metrics endpoint", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mon.Start(); err != nil {
		fatal(err)
	}
	m.SessionsTotal.Inc()

	switch {
	case *datasetPath != "":
		records, err := dataset.Load(*datasetPath)
		if err != nil {
			fatal(err)
		}
		events, err := dataset.Convert(records)
		if err != nil {
			fatal(err)
		}
		m.ImportsTotal.Inc()
		interval := time.Duration(cfg.Dataset.PlaybackIntervalSec) * time.Second
		player := monitor.NewPlayer(engine, events, interval)
		player.Run(ctx)
		fmt.Printf("Playing back %d records every %s. Ctrl-C to stop.\n", len(events), interval)

		if cfg.Dataset.Dir != "" {
			watchDatasets(ctx, cfg, player, m)
		}
	case *simulate || cfg.Monitor.SimulateSensors:
		sim := monitor.NewSimulator(mon, nil, time.Duration(cfg.Monitor.SimulateIntervalMs)*time.Millisecond)
		sim.Run(ctx)
		fmt.Println("Simulating sensor activity. Ctrl-C to stop.")
	default:
		fmt.Println("No sensor source configured; waiting for external ingress. Ctrl-C to stop.")
	}

	engine.Subscribe(func(snap risk.Snapshot) {
		fmt.Printf("risk=%.1f (max %.1f) level=%s copy_streak=%d focus_streak=%d events=%d\n",
			snap.TotalRiskScore, snap.MaxRiskScore, snap.Level,
			snap.Streaks.ConsecutiveCopyAttempts, snap.Streaks.ConsecutiveFocusChanges,
			snap.EventCount)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	if err := mon.Stop(); err != nil {
		fatal(err)
	}

	snap := engine.Snapshot()
	fmt.Printf("\nSession %s finished: risk %.1f (%s), %d events\n",
		mon.SessionID(), snap.TotalRiskScore, snap.Level, snap.EventCount)
}

// watchDatasets reloads the player whenever a dataset file in the watched
// directory settles after a change.
func watchDatasets(ctx context.Context, cfg *config.Config, player *monitor.Player, m *metrics.Metrics) {
	debounce := time.Duration(cfg.Dataset.WatchDebounceMs) * time.Millisecond
	w, err := dataset.NewWatcher(cfg.Dataset.Dir, debounce)
	if err != nil {
		logging.Warn("dataset watcher unavailable", "error", err)
		return
	}
	if err := w.Start(); err != nil {
		logging.Warn("dataset watcher failed to start", "error", err)
		return
	}

	go func() {
		defer w.Stop()
		for {
			select {
			case path := <-w.Events():
				records, err := dataset.Load(path)
				if err != nil {
					logging.Warn("dataset reload failed", "path", path, "error", err)
					continue
				}
				events, err := dataset.Convert(records)
				if err != nil {
					logging.Warn("dataset reload skipped", "path", path, "error", err)
					continue
				}
				player.SetEvents(events)
				m.ImportsTotal.Inc()
				logging.Info("dataset reloaded", "path", path, "records", len(events))
			case err := <-w.Errors():
				logging.Warn("dataset watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func cmdValidate() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fatal(fmt.Errorf("usage: proctord validate <file>"))
	}

	records, err := dataset.Load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("OK: %d records\n", len(records))
}

func cmdReplay() {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fatal(fmt.Errorf("usage: proctord replay <file>"))
	}

	records, err := dataset.Load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	events, err := dataset.Convert(records)
	if err != nil {
		fatal(err)
	}

	engine := risk.NewEngine(nil)
	engine.ImportEvents(events)

	snap := engine.Snapshot()
	fmt.Printf("Records:                 %d\n", len(events))
	fmt.Printf("Total risk score:        %.1f\n", snap.TotalRiskScore)
	fmt.Printf("Risk level:              %s\n", snap.Level)
	fmt.Printf("Consecutive copy events: %d\n", snap.Streaks.ConsecutiveCopyAttempts)
	fmt.Printf("Consecutive focus moves: %d\n", snap.Streaks.ConsecutiveFocusChanges)
}

func cmdSessions() {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	sessions, err := st.ListSessions()
	if err != nil {
		fatal(err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded.")
		return
	}

	for _, s := range sessions {
		started := time.Unix(0, s.StartedNs).Format(time.RFC3339)
		state := "open"
		if s.EndedNs != 0 {
			state = time.Unix(0, s.EndedNs).Format(time.RFC3339)
		}
		fmt.Printf("%s  student=%s  started=%s  ended=%s\n", s.ID, s.StudentID, started, state)
	}
}

func cmdReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fatal(fmt.Errorf("usage: proctord report <session-id>"))
	}
	sessionID := fs.Arg(0)

	cfg := loadConfig(*configPath)
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	sess, err := st.GetSession(sessionID)
	if err != nil {
		fatal(err)
	}
	if sess == nil {
		fatal(fmt.Errorf("session not found: %s", sessionID))
	}

	fmt.Printf("Session %s (student %s)\n\n", sess.ID, sess.StudentID)

	snaps, err := st.GetSnapshots(sessionID)
	if err != nil {
		fatal(err)
	}
	for _, snap := range snaps {
		fmt.Printf("%s  risk=%6.1f  max=%6.1f  level=%-6s  copy=%d  focus=%d  events=%d\n",
			time.Unix(0, snap.TakenNs).Format("15:04:05"),
			snap.TotalRiskScore, snap.MaxRiskScore, snap.Level,
			snap.ConsecutiveCopyAttempts, snap.ConsecutiveFocusChanges, snap.EventCount)
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots recorded for this session.")
	}
}

func cmdStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	fs.Parse(os.Args[2:])

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg := loadConfig(*configPath)

	fmt.Printf("Config:            %s\n", path)
	fmt.Printf("Storage:           %s\n", cfg.Storage.Path)
	fmt.Printf("Playback interval: %ds\n", cfg.Dataset.PlaybackIntervalSec)
	fmt.Printf("Snapshot interval: %ds\n", cfg.Monitor.SnapshotIntervalSec)
	fmt.Printf("Desktop notify:    %v\n", cfg.Notify.Desktop)
	fmt.Printf("Metrics endpoint:  %v", cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		fmt.Printf(" (%s)", cfg.Metrics.ListenAddr)
	}
	fmt.Println()

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Printf("Store:             unavailable (%v)\n", err)
		return
	}
	defer st.Close()

	sessions, err := st.ListSessions()
	if err != nil {
		fmt.Printf("Store:             unreadable (%v)\n", err)
		return
	}
	fmt.Printf("Sessions recorded: %d\n", len(sessions))
}
