package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/notetrack/notetrack/internal/colors"
)

var colorsCmd = &cobra.Command{
	Use:   "colors",
	Short: "Inspect and pin select-option colors",
	Long: `Select options written during sync get a palette color assigned
automatically and remembered. Pin a color to override the automatic
choice for one option.`,
}

var colorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List color assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		all := colMgr.All()
		if jsonOutput {
			return printJSON(all)
		}
		if len(all) == 0 {
			fmt.Println("No color assignments yet.")
			return nil
		}
		fields := make([]string, 0, len(all))
		for f := range all {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Println(color.New(color.Bold).Sprint(f))
			opts := make([]string, 0, len(all[f]))
			for o := range all[f] {
				opts = append(opts, o)
			}
			sort.Strings(opts)
			for _, o := range opts {
				pin := ""
				if _, fixed := colMgr.Fixed(f, o); fixed {
					pin = " (pinned)"
				}
				fmt.Printf("  %-20s color %d%s\n", o, all[f][o], pin)
			}
		}
		return nil
	},
}

var colorsPinCmd = &cobra.Command{
	Use:   "pin <field> <option> <color>",
	Short: "Pin an option to a palette color (1-14)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 1 || n > colors.PaletteSize {
			return fmt.Errorf("color must be 1-%d", colors.PaletteSize)
		}
		if err := colMgr.Pin(args[0], args[1], n); err != nil {
			return err
		}
		fmt.Printf("%s %s/%s pinned to color %d\n", color.GreenString("✓"), args[0], args[1], n)
		return nil
	},
}

var colorsUnpinCmd = &cobra.Command{
	Use:   "unpin <field> <option>",
	Short: "Remove a pinned color, reverting to automatic assignment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := colMgr.Unpin(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s %s/%s unpinned\n", color.GreenString("✓"), args[0], args[1])
		return nil
	},
}

func init() {
	colorsCmd.AddCommand(colorsListCmd, colorsPinCmd, colorsUnpinCmd)
	rootCmd.AddCommand(colorsCmd)
}
