package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/host"
	"github.com/notetrack/notetrack/internal/project"
	"github.com/notetrack/notetrack/internal/tracker"
)

var (
	syncRowID    string
	syncFromRow  string
	syncNoReload bool
)

// syncRequest is one resolved sync invocation, independent of how the
// command-line flags spelled it.
type syncRequest struct {
	Keys     []string
	RowID    string // explicit target row, single key only
	FromRow  string // block id to derive database row and key from
	NoReload bool
}

type syncResult struct {
	Key   string `json:"key"`
	RowID string `json:"row_id"`
	Ops   int    `json:"ops"`
	Error string `json:"error,omitempty"`
}

var syncCmd = &cobra.Command{
	Use:   "sync [key...]",
	Short: "Sync tracker issue fields into host database rows",
	Long: `Fetch each issue from the active tracker and write its mapped fields
into the matching database row as one transaction.

Rows are located by the configured key column. Use --row to target a
specific row id (single key only), or --from-row to sync the row that
contains a given block, deriving the issue key from the row itself.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := syncRequest{
			Keys:     args,
			RowID:    syncRowID,
			FromRow:  syncFromRow,
			NoReload: syncNoReload,
		}
		if req.FromRow != "" && (len(req.Keys) > 0 || req.RowID != "") {
			return fmt.Errorf("--from-row cannot be combined with keys or --row")
		}
		if req.RowID != "" && len(req.Keys) != 1 {
			return fmt.Errorf("--row requires exactly one key")
		}
		if req.FromRow == "" && len(req.Keys) == 0 {
			return fmt.Errorf("no issue keys given")
		}

		results, err := runSync(cmd.Context(), req)
		if err != nil {
			return err
		}
		return reportSync(results)
	},
}

// runSync executes a sync request and returns per-key results. Lookup
// and projection failures land in the result rows; only setup failures
// (config, clients) return an error.
func runSync(ctx context.Context, req syncRequest) ([]syncResult, error) {
	t, err := activeTracker(ctx)
	if err != nil {
		return nil, err
	}
	client, err := hostClient()
	if err != nil {
		return nil, err
	}
	p := &project.Projector{
		Mappings: cfg.FieldMappings,
		Types:    cfg.FieldTypes,
		Colors:   colMgr,
	}
	if len(p.Mappings) == 0 {
		return nil, fmt.Errorf("no field mappings configured; set field_mappings first")
	}

	var results []syncResult
	changed := 0

	syncOne := func(key, rowID string) {
		n, err := syncIssue(ctx, t, client, p, key, rowID)
		r := syncResult{Key: key, RowID: rowID, Ops: n}
		if err != nil {
			r.Error = err.Error()
		} else if n > 0 {
			changed++
		}
		results = append(results, r)
	}

	if req.FromRow != "" {
		key, rowID, err := keyFromBlock(ctx, client, req.FromRow)
		if err != nil {
			return nil, err
		}
		syncOne(key, rowID)
	} else {
		for _, key := range req.Keys {
			rowID := req.RowID
			if rowID == "" {
				rowID, err = client.FindRowByKey(ctx, cfg.Host.DatabaseID, cfg.Host.KeyColumn, key)
				if err != nil {
					results = append(results, syncResult{Key: key, Error: err.Error()})
					continue
				}
			}
			syncOne(key, rowID)
		}
	}

	if changed > 0 && !req.NoReload {
		if err := client.ReloadView(ctx, cfg.Host.DatabaseID); err != nil {
			debug.Warnf("sync: reloading view: %v", err)
		}
	}
	return results, nil
}

// reportSync prints the results and folds failures into the exit status.
func reportSync(results []syncResult) error {
	if jsonOutput {
		return printJSON(results)
	}
	failed := 0
	for _, r := range results {
		switch {
		case r.Error != "":
			failed++
			color.Red("✗ %s: %s", r.Key, r.Error)
		case r.Ops == 0:
			debug.PrintNormal("- %s: nothing to update", r.Key)
		default:
			debug.PrintNormal("%s %s: %d cell(s) updated", color.GreenString("✓"), r.Key, r.Ops)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d issue(s) failed", failed, len(results))
	}
	return nil
}

// syncIssue projects one issue onto one row. Returns the number of cell
// ops applied, zero when nothing resolved.
func syncIssue(ctx context.Context, t tracker.WorklogTracker, client *host.Client, p *project.Projector, key, rowID string) (int, error) {
	issue, err := t.FetchIssue(ctx, key)
	if err != nil {
		return 0, err
	}
	row, err := client.GetRow(ctx, cfg.Host.DatabaseID, rowID)
	if err != nil {
		return 0, err
	}

	ops := project.Expand(p.Project(issue, row))
	if len(ops) == 0 {
		debug.Logf("sync: no ops for %s", key)
		return 0, nil
	}
	if err := client.ApplyTransaction(ctx, cfg.Host.DatabaseID, rowID, ops); err != nil {
		return 0, err
	}
	return len(ops), nil
}

// keyFromBlock resolves --from-row: find the database row containing
// the block, then read the issue key out of the key column.
func keyFromBlock(ctx context.Context, client *host.Client, blockID string) (key, rowID string, err error) {
	dbID, rowID, err := client.ResolveRow(ctx, blockID)
	if err != nil {
		return "", "", err
	}
	if dbID != cfg.Host.DatabaseID {
		debug.Warnf("sync: block %s lives in database %s, not the configured one", blockID, dbID)
	}
	row, err := client.GetRow(ctx, dbID, rowID)
	if err != nil {
		return "", "", err
	}
	key, ok := row.ValueByName(cfg.Host.KeyColumn)
	if !ok || key == "" {
		return "", "", fmt.Errorf("row %s has no value in key column %q", rowID, cfg.Host.KeyColumn)
	}
	return key, rowID, nil
}

func init() {
	syncCmd.Flags().StringVar(&syncRowID, "row", "", "Target row id (single key only)")
	syncCmd.Flags().StringVar(&syncFromRow, "from-row", "", "Sync the row containing this block id")
	syncCmd.Flags().BoolVar(&syncNoReload, "no-reload", false, "Skip the view reload after updates")
	rootCmd.AddCommand(syncCmd)
}
