package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/notetrack/notetrack/internal/idcache"
	"github.com/notetrack/notetrack/internal/statestore"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the work-item identity cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show identity-cache size and session hit rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		hits, misses := idCa.Stats()
		if jsonOutput {
			return printJSON(map[string]int{
				"entries":  idCa.Len(),
				"capacity": idcache.Capacity,
				"hits":     hits,
				"misses":   misses,
			})
		}
		fmt.Printf("entries:  %d / %d\n", idCa.Len(), idcache.Capacity)
		fmt.Printf("hits:     %d\n", hits)
		fmt.Printf("misses:   %d\n", misses)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [key]",
	Short: "Drop one cached identity, or the whole cache",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			idCa.Clear(args[0])
			fmt.Printf("%s cleared %s\n", color.GreenString("✓"), args[0])
			return nil
		}
		idCa.ClearAll()
		fmt.Printf("%s identity cache cleared\n", color.GreenString("✓"))
		return nil
	},
}

var cacheTokenCmd = &cobra.Command{
	Use:   "clear-token",
	Short: "Drop the cached Lark plugin token, forcing a refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.Delete(statestore.BlobLarkToken); err != nil {
			return err
		}
		fmt.Printf("%s token cache cleared\n", color.GreenString("✓"))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheTokenCmd)
	rootCmd.AddCommand(cacheCmd)
}
