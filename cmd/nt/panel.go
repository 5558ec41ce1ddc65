package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/notetrack/notetrack/internal/config"
	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/duration"
	"github.com/notetrack/notetrack/internal/resolve"
	"github.com/notetrack/notetrack/internal/types"
)

var (
	panelTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	panelLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	panelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

var panelCmd = &cobra.Command{
	Use:   "panel <key>",
	Short: "Interactive panel for one issue",
	Long: `Show an issue's mapped fields and today's time entries, with actions
to log time or resync the row. Config edits (including mapping changes
made in another terminal) are picked up live.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key := args[0]

		t, err := activeTracker(ctx)
		if err != nil {
			return err
		}
		svc, err := timelogService(ctx)
		if err != nil {
			return err
		}

		// reload config when the blob changes on disk
		reload := make(chan struct{}, 1)
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			defer func() { _ = watcher.Close() }()
			if err := watcher.Add(store.Dir()); err == nil {
				go watchConfig(watcher, reload)
			}
		} else {
			debug.Warnf("panel: config watch unavailable: %v", err)
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-reload:
				fresh, err := config.Load(store)
				if err != nil {
					debug.Warnf("panel: reloading config: %v", err)
				} else {
					cfg = fresh
					debug.Logf("panel: config reloaded")
				}
			default:
			}

			issue, err := t.FetchIssue(ctx, key)
			if err != nil {
				return err
			}
			today := time.Now()
			day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
			entries, listErr := svc.List(ctx, key, day)
			if listErr != nil {
				debug.Warnf("panel: listing entries: %v", listErr)
			}

			fmt.Println(renderPanel(key, issue, entries))

			var action string
			form := huh.NewForm(huh.NewGroup(
				huh.NewSelect[string]().
					Title("Action").
					Options(
						huh.NewOption("Log time", "log"),
						huh.NewOption("Sync row", "sync"),
						huh.NewOption("Refresh", "refresh"),
						huh.NewOption("Quit", "quit"),
					).
					Value(&action),
			))
			if err := form.Run(); err != nil {
				return nil
			}

			switch action {
			case "log":
				entry := &types.TimeEntry{Start: time.Now(), ItemKey: key}
				if err := runLogForm(ctx, svc, key, entry); err != nil {
					debug.Warnf("panel: %v", err)
					continue
				}
				if _, err := svc.Add(ctx, key, entry); err != nil {
					debug.Warnf("panel: logging time: %v", err)
				}
			case "sync":
				results, err := runSync(ctx, syncRequest{Keys: []string{key}})
				if err != nil {
					debug.Warnf("panel: sync: %v", err)
				} else if err := reportSync(results); err != nil {
					debug.Warnf("panel: sync: %v", err)
				}
			case "refresh":
				// loop re-fetches
			case "quit":
				return nil
			}
		}
	},
}

// watchConfig forwards config-blob writes to the reload channel,
// dropping events while a reload is already pending.
func watchConfig(watcher *fsnotify.Watcher, reload chan<- struct{}) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, "config.json") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case reload <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			debug.Warnf("panel: watching config: %v", err)
		}
	}
}

// renderPanel formats the mapped fields and today's entries.
func renderPanel(key string, issue map[string]interface{}, entries []types.TimeEntry) string {
	var b strings.Builder
	b.WriteString(panelTitle.Render(key))
	b.WriteString("\n")

	names := make([]string, 0, len(cfg.FieldMappings))
	for name := range cfg.FieldMappings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		val, ok := resolve.Resolve(issue, cfg.FieldMappings[name])
		if !ok || val == nil {
			continue
		}
		b.WriteString(panelLabel.Render(name))
		b.WriteString(resolve.Stringify(val))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if len(entries) == 0 {
		b.WriteString("No time logged today.\n")
	} else {
		total := 0.0
		for _, e := range entries {
			hours := duration.ParseHours(e.Duration)
			total += hours
			fmt.Fprintf(&b, "%s  %s\n", duration.FormatHours(hours), e.Description)
		}
		fmt.Fprintf(&b, "Today: %s\n", duration.FormatHours(total))
	}
	return panelBorder.Render(strings.TrimRight(b.String(), "\n"))
}

func init() {
	rootCmd.AddCommand(panelCmd)
}
