package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get and set configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, ok := cfg.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown config key %q (see nt config list)", args[0])
		}
		fmt.Println(val)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		return cfg.Save(store)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config keys and values",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := cfg.Keys()
		sort.Strings(keys)
		if jsonOutput {
			out := map[string]string{}
			for _, k := range keys {
				out[k], _ = cfg.Get(k)
			}
			return printJSON(out)
		}
		for _, k := range keys {
			val, _ := cfg.Get(k)
			if val != "" && isSecretKey(k) {
				val = "********"
			}
			fmt.Printf("%-28s %s\n", k, val)
		}
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify tracker and host connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ok := true

		if t, err := activeTracker(ctx); err != nil {
			ok = false
			color.Red("✗ tracker: %v", err)
		} else if err := t.Validate(ctx); err != nil {
			ok = false
			color.Red("✗ %s: %v", t.DisplayName(), err)
		} else {
			color.Green("✓ %s reachable", t.DisplayName())
		}

		if client, err := hostClient(); err != nil {
			ok = false
			color.Red("✗ host: %v", err)
		} else if _, err := client.ListNotebooks(ctx); err != nil {
			ok = false
			color.Red("✗ host API: %v", err)
		} else {
			color.Green("✓ host API reachable")
		}

		if len(cfg.FieldMappings) == 0 {
			color.Yellow("! no field mappings configured; nt sync will refuse to run")
		}
		if !ok {
			return fmt.Errorf("configuration check failed")
		}
		return nil
	},
}

var configMapType string

var configMapCmd = &cobra.Command{
	Use:   "map <column> <path>",
	Short: "Map a database column to an issue field path",
	Long: `Map a column name to a resolution path. Plain paths walk the issue
JSON ("fields.status.name", "fields.labels[0]"); expr:-prefixed paths
run the restricted expression language. --type declares how the value
is written (text, date, select, url; default text).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch configMapType {
		case "", "text", "date", "select", "url":
		default:
			return fmt.Errorf("unknown field type %q (text|date|select|url)", configMapType)
		}
		if cfg.FieldMappings == nil {
			cfg.FieldMappings = map[string]string{}
		}
		cfg.FieldMappings[args[0]] = args[1]
		if configMapType != "" && configMapType != "text" {
			if cfg.FieldTypes == nil {
				cfg.FieldTypes = map[string]string{}
			}
			cfg.FieldTypes[args[0]] = configMapType
		} else {
			delete(cfg.FieldTypes, args[0])
		}
		return cfg.Save(store)
	},
}

var configUnmapCmd = &cobra.Command{
	Use:   "unmap <column>",
	Short: "Remove a column mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := cfg.FieldMappings[args[0]]; !ok {
			return fmt.Errorf("no mapping for column %q", args[0])
		}
		delete(cfg.FieldMappings, args[0])
		delete(cfg.FieldTypes, args[0])
		return cfg.Save(store)
	},
}

var configMappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "List column mappings and their types",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(map[string]interface{}{
				"field_mappings": cfg.FieldMappings,
				"field_types":    cfg.FieldTypes,
			})
		}
		if len(cfg.FieldMappings) == 0 {
			fmt.Println("No mappings configured.")
			return nil
		}
		names := make([]string, 0, len(cfg.FieldMappings))
		for n := range cfg.FieldMappings {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			ft := cfg.FieldTypes[n]
			if ft == "" {
				ft = "text"
			}
			fmt.Printf("%-20s %-8s %s\n", n, ft, cfg.FieldMappings[n])
		}
		return nil
	},
}

// isSecretKey hides credential values in list output.
func isSecretKey(k string) bool {
	for _, s := range []string{"token", "secret", "authorization", "password"} {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

func init() {
	configMapCmd.Flags().StringVar(&configMapType, "type", "", "Field type: text|date|select|url")
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd, configCheckCmd,
		configMapCmd, configUnmapCmd, configMappingsCmd)
	rootCmd.AddCommand(configCmd)
}
