package commands

import (
	"encoding/json"
	"os"
	"slices"
	"stlib/lib/webclient"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
)

var (
	varsOpts      func() (webclient.RequestOptions, error)
	varsIndex     *int
	varsDelimiter *string

	callOpts      func() (webclient.RequestOptions, error)
	callIndex     *int
	callTarget    *string
	callDelimiter *string
)

func init() {
	varsOpts = addRequestFlags(varsCmd)
	varsIndex = varsCmd.Flags().IntP("script", "s", 0, "The zero-based index of the script element.")
	varsDelimiter = varsCmd.Flags().String("delimiter", "", "The statement delimiter, a newline by default.")
	rootCmd.AddCommand(varsCmd)

	callOpts = addRequestFlags(callCmd)
	callIndex = callCmd.Flags().IntP("script", "s", 0, "The zero-based index of the script element.")
	callTarget = callCmd.Flags().StringP("target", "t", "", "A substring of the line that holds the call.")
	callDelimiter = callCmd.Flags().String("delimiter", "", `The line delimiter, "\t+" by default.`)
	callCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(callCmd)
}

func renderPairs(header string, keys []string, value func(key string) string) {
	slices.Sort(keys)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{header, "Value"})
	for _, key := range keys {
		t.AppendRow(table.Row{key, value(key)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 80, WidthMaxEnforcer: text.WrapHard},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var varsCmd = &cobra.Command{
	Use:   "vars <url> [--script N]",
	Short: "Prints the json variables assigned in a script element of a page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := varsOpts()
		if err != nil {
			return err
		}
		client, err := newSession(webclient.BaseKind)
		if err != nil {
			return err
		}
		vars, err := client.RequestVarsFromScript(cmd.Context(), args[0], webclient.ScriptVars{
			Index:     *varsIndex,
			Delimiter: *varsDelimiter,
		}, opts)
		if err != nil {
			return err
		}

		renderPairs("Variable", maps.Keys(vars), func(key string) string {
			encoded, err := json.Marshal(vars[key])
			if err != nil {
				return err.Error()
			}
			return string(encoded)
		})
		return nil
	},
}

var callCmd = &cobra.Command{
	Use:   "call <url> --target <name> [--script N]",
	Short: "Prints the key:\"value\" arguments of a call in a script element of a page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := callOpts()
		if err != nil {
			return err
		}
		client, err := newSession(webclient.BaseKind)
		if err != nil {
			return err
		}
		data, err := client.RequestJSONFromScript(cmd.Context(), args[0], webclient.ScriptCall{
			Index:     *callIndex,
			Target:    *callTarget,
			Delimiter: *callDelimiter,
		}, opts)
		if err != nil {
			return err
		}

		renderPairs("Key", maps.Keys(data), func(key string) string {
			return data[key]
		})
		return nil
	},
}
