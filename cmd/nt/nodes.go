package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/notetrack/notetrack/internal/debug"
)

var (
	nodesDay   string
	nodesUsers bool
)

// nodeUserLister is the optional capability of trackers that can report
// who time may be attributed to on a node.
type nodeUserLister interface {
	NodeUsers(ctx context.Context, key, nodeID string) ([]string, error)
}

var nodesCmd = &cobra.Command{
	Use:   "nodes <key>",
	Short: "List the workable nodes of a work item",
	Long: `List the nodes (stages) of a work item that time can be attributed
to. Trackers without a node concept report none.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, err := activeTracker(ctx)
		if err != nil {
			return err
		}
		logDay = nodesDay
		day, err := listDay()
		if err != nil {
			return err
		}
		nodes, err := t.Nodes(ctx, args[0], day)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(nodes)
		}
		if len(nodes) == 0 {
			fmt.Printf("%s reports no nodes for %s.\n", t.DisplayName(), args[0])
			return nil
		}
		lister, canListUsers := t.(nodeUserLister)
		for _, n := range nodes {
			marker := " "
			if !n.HasNext {
				marker = color.YellowString("*")
			}
			fmt.Printf("%s %s  %s\n", marker, color.CyanString(n.ID), n.Name)
			if nodesUsers && canListUsers {
				users, err := lister.NodeUsers(ctx, args[0], n.ID)
				if err != nil {
					debug.Warnf("nodes: listing users for %s: %v", n.ID, err)
					continue
				}
				if len(users) > 0 {
					fmt.Printf("    users: %s\n", strings.Join(users, ", "))
				}
			}
		}
		return nil
	},
}

func init() {
	nodesCmd.Flags().StringVar(&nodesDay, "day", "", "Day to list nodes for (YYYY-MM-DD, default today)")
	nodesCmd.Flags().BoolVar(&nodesUsers, "users", false, "Also list attributable users per node (Lark only)")
	rootCmd.AddCommand(nodesCmd)
}
