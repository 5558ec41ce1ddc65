package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/duration"
	"github.com/notetrack/notetrack/internal/timelog"
	"github.com/notetrack/notetrack/internal/types"
)

// runLogForm fills the entry interactively. The node select only
// appears when the tracker exposes nodes for the issue on that day.
func runLogForm(ctx context.Context, svc *timelog.Service, key string, entry *types.TimeEntry) error {
	var fields []huh.Field

	fields = append(fields,
		huh.NewInput().
			Title("Time spent").
			Description(`e.g. "1h 30m", "45m"; empty means 1h`).
			Placeholder("1h").
			Value(&entry.Duration).
			Validate(func(s string) error {
				s = strings.TrimSpace(s)
				if s == "" {
					return nil
				}
				if !strings.ContainsAny(strings.ToLower(s), "hm") {
					return fmt.Errorf(`use the "<N>h <M>m" form`)
				}
				return nil
			}),

		huh.NewText().
			Title("Description").
			Description("What the time was spent on (required)").
			CharLimit(1000).
			Value(&entry.Description).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("description is required")
				}
				return nil
			}),
	)

	nodes, err := svc.Nodes(ctx, key, entry.Day())
	if err != nil {
		debug.Warnf("log: listing nodes for %s: %v", key, err)
	}
	if len(nodes) > 0 {
		opts := make([]huh.Option[string], 0, len(nodes)+1)
		opts = append(opts, huh.NewOption("(none)", ""))
		for _, n := range nodes {
			label := n.Name
			if !n.HasNext {
				label += " [final]"
			}
			opts = append(opts, huh.NewOption(label, n.ID))
		}
		fields = append(fields,
			huh.NewSelect[string]().
				Title("Node").
				Description("Stage of the work item to attribute the time to").
				Options(opts...).
				Value(&entry.NodeID))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}
	if strings.TrimSpace(entry.Duration) == "" {
		entry.Duration = duration.FormatHours(duration.DefaultHours)
	}
	return nil
}
