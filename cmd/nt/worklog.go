package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/notetrack/notetrack/internal/duration"
	"github.com/notetrack/notetrack/internal/types"
)

var (
	logDay      string
	logDuration string
	logDesc     string
	logNodeID   string
	logAllDays  bool
)

var logCmd = &cobra.Command{
	Use:     "log",
	Aliases: []string{"worklog"},
	Short:   "List and manage time-log entries on a tracker issue",
}

var logListCmd = &cobra.Command{
	Use:   "list <key>",
	Short: "List time-log entries for an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := timelogService(ctx)
		if err != nil {
			return err
		}
		day, err := listDay()
		if err != nil {
			return err
		}
		entries, err := svc.List(ctx, args[0], day)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No entries.")
			return nil
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s  %s  %s  %s",
				color.CyanString(e.ID),
				e.Start.Format("2006-01-02 15:04"),
				duration.FormatHours(duration.ParseHours(e.Duration)),
				e.Description)
			if e.NodeName != "" {
				line += fmt.Sprintf("  (%s)", e.NodeName)
			}
			if e.Author != "" {
				line += "  " + color.HiBlackString(e.Author)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var logAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Log time on an issue",
	Long: `Log a time entry on the issue. With --time and --desc the entry is
created directly; otherwise an interactive form collects the details.

Durations use the "<N>h <M>m" form ("1h 30m", "45m", "2h"); an empty
duration defaults to 1h.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key := args[0]
		svc, err := timelogService(ctx)
		if err != nil {
			return err
		}

		entry := &types.TimeEntry{
			Duration:    logDuration,
			Description: logDesc,
			NodeID:      logNodeID,
			ItemKey:     key,
		}
		entry.Start, err = entryStart()
		if err != nil {
			return err
		}

		if entry.Description == "" && !jsonOutput {
			if err := runLogForm(ctx, svc, key, entry); err != nil {
				return err
			}
		}
		if strings.TrimSpace(entry.Description) == "" {
			return fmt.Errorf("a description is required")
		}
		if entry.Duration == "" {
			entry.Duration = duration.FormatHours(duration.DefaultHours)
		}

		created, err := svc.Add(ctx, key, entry)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(created)
		}
		fmt.Printf("%s Logged %s on %s (entry %s)\n",
			color.GreenString("✓"),
			duration.FormatHours(duration.ParseHours(created.Duration)),
			key, created.ID)
		return nil
	},
}

var logEditCmd = &cobra.Command{
	Use:   "edit <key> <entry-id>",
	Short: "Edit an existing time-log entry",
	Long: `Rewrite an entry's duration, description, or node. When the tracker
cannot update in place the entry is deleted and recreated; the new id
replaces the old one in the output and in the daily note.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key, entryID := args[0], args[1]
		svc, err := timelogService(ctx)
		if err != nil {
			return err
		}

		entries, err := svc.List(ctx, key, time.Time{})
		if err != nil {
			return err
		}
		var entry *types.TimeEntry
		for i := range entries {
			if entries[i].ID == entryID {
				entry = &entries[i]
				break
			}
		}
		if entry == nil {
			return fmt.Errorf("no entry %s on %s", entryID, key)
		}

		if logDuration != "" {
			entry.Duration = logDuration
		}
		if logDesc != "" {
			entry.Description = logDesc
		}
		if logNodeID != "" {
			entry.NodeID = logNodeID
		}
		entry.ItemKey = key

		updated, err := svc.Edit(ctx, key, entry)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(updated)
		}
		if updated.ID != entryID {
			fmt.Printf("%s Entry recreated as %s\n", color.GreenString("✓"), updated.ID)
		} else {
			fmt.Printf("%s Entry %s updated\n", color.GreenString("✓"), updated.ID)
		}
		return nil
	},
}

var logRmCmd = &cobra.Command{
	Use:     "rm <key> <entry-id>",
	Aliases: []string{"delete", "remove"},
	Short:   "Delete a time-log entry",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := timelogService(ctx)
		if err != nil {
			return err
		}
		if err := svc.Delete(ctx, args[0], args[1]); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]string{"deleted": args[1]})
		}
		fmt.Printf("%s Entry %s deleted\n", color.GreenString("✓"), args[1])
		return nil
	},
}

// listDay resolves the --day/--all flags into a filter day. A zero time
// means all entries.
func listDay() (time.Time, error) {
	if logAllDays {
		return time.Time{}, nil
	}
	if logDay == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	d, err := time.ParseInLocation("2006-01-02", logDay, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --day %q, want YYYY-MM-DD", logDay)
	}
	return d, nil
}

// entryStart picks the entry's start time: the given day at the current
// clock time, or now.
func entryStart() (time.Time, error) {
	if logDay == "" {
		return time.Now(), nil
	}
	d, err := time.ParseInLocation("2006-01-02", logDay, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --day %q, want YYYY-MM-DD", logDay)
	}
	now := time.Now()
	return time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), 0, 0, time.Local), nil
}

func init() {
	logListCmd.Flags().StringVar(&logDay, "day", "", "Day to list (YYYY-MM-DD, default today)")
	logListCmd.Flags().BoolVar(&logAllDays, "all", false, "List entries for all days")

	logAddCmd.Flags().StringVarP(&logDuration, "time", "t", "", `Duration, e.g. "1h 30m" (default 1h)`)
	logAddCmd.Flags().StringVarP(&logDesc, "desc", "m", "", "What the time was spent on")
	logAddCmd.Flags().StringVar(&logNodeID, "node", "", "Work-item node to attribute the time to")
	logAddCmd.Flags().StringVar(&logDay, "day", "", "Day to log on (YYYY-MM-DD, default today)")

	logEditCmd.Flags().StringVarP(&logDuration, "time", "t", "", "New duration")
	logEditCmd.Flags().StringVarP(&logDesc, "desc", "m", "", "New description")
	logEditCmd.Flags().StringVar(&logNodeID, "node", "", "New work-item node")

	logCmd.AddCommand(logListCmd, logAddCmd, logEditCmd, logRmCmd)
	rootCmd.AddCommand(logCmd)
}
