// Command nt syncs issue-tracker data into a note application's
// database rows and manages time-log entries mirrored into daily notes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notetrack/notetrack/internal/colors"
	"github.com/notetrack/notetrack/internal/config"
	"github.com/notetrack/notetrack/internal/daynote"
	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/host"
	"github.com/notetrack/notetrack/internal/idcache"
	"github.com/notetrack/notetrack/internal/statestore"
	"github.com/notetrack/notetrack/internal/timelog"
	"github.com/notetrack/notetrack/internal/tracker"

	// adapter registrations
	_ "github.com/notetrack/notetrack/internal/jira"
	_ "github.com/notetrack/notetrack/internal/lark"
)

var version = "dev"

var (
	dataDir     string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	store  *statestore.Store
	cfg    *config.Config
	idCa   *idcache.Cache
	colMgr *colors.Manager

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:           "nt",
	Short:         "Sync tracker issues into note databases and manage time logs",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		dir := dataDir
		if dir == "" {
			var err error
			dir, err = statestore.DefaultDir()
			if err != nil {
				return fmt.Errorf("locating data dir: %w", err)
			}
		}
		var err error
		store, err = statestore.Open(dir)
		if err != nil {
			return fmt.Errorf("opening state store: %w", err)
		}
		cfg, err = config.Load(store)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		idCa = idcache.Load(store)
		colMgr = colors.Load(store)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "State directory (default: ~/.notetrack)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
}

// activeTracker builds and initializes the configured tracker adapter.
func activeTracker(ctx context.Context) (tracker.WorklogTracker, error) {
	if err := cfg.ValidateTracker(); err != nil {
		return nil, err
	}
	t, err := tracker.New(cfg.ActiveTracker)
	if err != nil {
		return nil, err
	}
	deps := tracker.Deps{Store: store, IDCache: idCa}
	if err := t.Init(ctx, cfg, deps); err != nil {
		return nil, fmt.Errorf("initializing %s: %w", t.DisplayName(), err)
	}
	return t, nil
}

// hostClient builds the host API client, failing when unconfigured.
func hostClient() (*host.Client, error) {
	if err := cfg.ValidateHost(); err != nil {
		return nil, err
	}
	return host.NewClient(cfg.Host.BaseURL, cfg.Host.Token), nil
}

// timelogService wires the tracker to the daily-note mirror. The mirror
// is omitted when the host side is not configured: time logging still
// works against the tracker alone.
func timelogService(ctx context.Context) (*timelog.Service, error) {
	t, err := activeTracker(ctx)
	if err != nil {
		return nil, err
	}
	svc := &timelog.Service{Tracker: t}
	if cfg.Host.BaseURL != "" && cfg.Host.NotebookID != "" {
		client, err := hostClient()
		if err != nil {
			return nil, err
		}
		svc.Mirror = &daynote.Reconciler{Client: client, NotebookID: cfg.Host.NotebookID}
	} else {
		debug.Logf("daily-note mirror disabled: host not configured")
	}
	return svc, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
