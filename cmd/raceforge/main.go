// Command raceforge is the CLI entrypoint for the race-condition
// exploitation orchestrator (spec.md §6). Grounded on cmd/sayl/main.go's
// shape: panic recovery, GOMAXPROCS tuning, signal-driven graceful
// cancellation, flag.StringVar/BoolVar parsing, and a bubbletea program
// run followed by report generation — adapted from a load-test's
// url/rate/duration flags to a workflow-file/threads/host/port set and
// SIGINT's dedicated exit code.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"raceforge/internal/cliux"
	"raceforge/internal/config"
	"raceforge/internal/dryrun"
	"raceforge/internal/metrics"
	"raceforge/internal/models"
	"raceforge/internal/orchestrator"
	"raceforge/internal/report"
	"raceforge/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

const version = "0.1.0"

// Exit codes, pinned exactly by spec.md §6.
const (
	exitOK             = 0
	exitFailure        = 1
	exitInterrupted    = 130
	exitConfigError    = 2
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			cliux.Error("fatal: %v", r)
			os.Exit(exitFailure)
		}
	}()

	runtime.GOMAXPROCS(runtime.NumCPU())
	os.Exit(run())
}

func run() int {
	var (
		user      string
		password  string
		seed      string
		threads   int
		host      string
		port      int
		verbose   bool
		showVer   bool
		noTUI     bool
	)

	flag.StringVar(&user, "user", "", "username exposed to templates as {{user}}")
	flag.StringVar(&password, "password", "", "password exposed to templates as {{password}} (PASSWORD env var takes precedence)")
	flag.StringVar(&seed, "seed", "", "seed value exposed to templates as {{totp_seed}}")
	flag.IntVar(&threads, "threads", 0, "override the thread count of every race state using the threads form (thread_groups states are left unchanged)")
	flag.StringVar(&host, "host", "", "override target.host")
	flag.IntVar(&port, "port", 0, "override target.port")
	flag.BoolVar(&verbose, "verbose", false, "run a single dry-run iteration with full request/response trace instead of the live dashboard")
	flag.BoolVar(&showVer, "version", false, "print version and exit")
	flag.BoolVar(&noTUI, "no-tui", false, "disable the live dashboard even outside --verbose (plain console output)")
	flag.Parse()

	if showVer {
		fmt.Printf("raceforge v%s\n", version)
		return exitOK
	}

	if flag.NArg() < 1 {
		cliux.Error("usage: raceforge [flags] <workflow.yaml>")
		return exitConfigError
	}
	workflowPath := flag.Arg(0)

	cfg, err := config.Load(workflowPath)
	if err != nil {
		cliux.Error("%v", err)
		return exitConfigError
	}

	applyOverrides(cfg, user, password, seed, threads, host, port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	interrupted := make(chan struct{})
	go func() {
		<-sigChan
		close(interrupted)
		cancel()
	}()

	cliux.PrintBanner(version)

	reg := metrics.New(cfg.Metrics)

	var trace *models.Trace
	if verbose {
		trace = runDryRun(ctx, cfg, reg)
	} else if noTUI {
		trace = runPlain(ctx, cfg, reg)
	} else {
		trace = runTUI(ctx, cfg, reg)
	}

	select {
	case <-interrupted:
		return exitInterrupted
	default:
	}

	summary := report.Build(cfg.Metadata.Name, trace, reg)
	if err := report.WriteJSON(summary, "report.json"); err != nil {
		cliux.Warn("failed to write report.json: %v", err)
	}
	if err := report.WriteHTML(summary, "report.html"); err != nil {
		cliux.Warn("failed to write report.html: %v", err)
	} else {
		cliux.Success("reports written: report.json, report.html")
	}

	if trace.Err != nil {
		return exitFailure
	}
	return exitOK
}

func applyOverrides(cfg *models.Config, user, password, seed string, threads int, host string, port int) {
	if cfg.Globals == nil {
		cfg.Globals = make(map[string]models.Value)
	}
	if envPassword := os.Getenv("PASSWORD"); envPassword != "" {
		password = envPassword
	}
	if user != "" {
		cfg.Globals["user"] = models.StringValue(user)
	}
	if password != "" {
		cfg.Globals["password"] = models.StringValue(password)
	}
	if seed != "" {
		cfg.Globals["totp_seed"] = models.StringValue(seed)
	}
	if host != "" {
		cfg.Target.Host = host
	}
	if port != 0 {
		cfg.Target.Port = port
	}
	if threads > 0 {
		for _, st := range cfg.States {
			if st.Race != nil && len(st.Race.ThreadGroups) == 0 {
				st.Race.Threads = threads
			}
		}
	}
}

func runDryRun(ctx context.Context, cfg *models.Config, reg *metrics.Registry) *models.Trace {
	observer := dryrun.New()
	orch := orchestrator.New(cfg, reg, observer)
	return orch.Run(ctx)
}

func runPlain(ctx context.Context, cfg *models.Config, reg *metrics.Registry) *models.Trace {
	orch := orchestrator.New(cfg, reg, nil)
	trace := orch.Run(ctx)
	report.PrintConsole(report.Build(cfg.Metadata.Name, trace, reg))
	return trace
}

func runTUI(ctx context.Context, cfg *models.Config, reg *metrics.Registry) *models.Trace {
	bridge := tui.NewBridge()
	model := tui.NewModel(bridge, cfg.Metadata.Name, fmt.Sprintf("%s:%d", cfg.Target.Host, cfg.Target.Port), len(cfg.States))
	program := tea.NewProgram(model)

	done := make(chan *models.Trace, 1)
	go func() {
		orch := orchestrator.New(cfg, reg, bridge)
		trace := orch.Run(ctx)
		bridge.Done(trace)
		done <- trace
	}()

	if _, err := program.Run(); err != nil {
		cliux.Error("dashboard error: %v", err)
	}

	return <-done
}
