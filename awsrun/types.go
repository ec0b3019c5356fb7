package main

import (
	"encoding/json"
	"fmt"

	"github.com/gammadia/awsrun/catalog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the supported instance types",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		types := catalog.All()

		switch output := lo.Must(cmd.Flags().GetString("output")); output {
		case "text":
			cmd.Printf("%-12s %-6s %s\n", "TYPE", "CORES", "CONCURRENCY")
			for _, t := range types {
				cmd.Printf("%-12s %-6d %d\n", t.Name, t.Cores, t.Concurrency())
			}
			return nil
		case "yaml":
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(types)
		case "json":
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(types)
		default:
			return fmt.Errorf("unknown output format '%s' (choose from text, yaml, json)", output)
		}
	},
}

func init() {
	typesCmd.Flags().StringP("output", "o", "text", "output format (text, yaml, json)")
}
