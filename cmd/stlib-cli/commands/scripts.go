package commands

import (
	"os"
	"stlib/lib/htmlutil"
	"stlib/lib/webclient"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var scriptsOpts func() (webclient.RequestOptions, error)

func init() {
	scriptsOpts = addRequestFlags(scriptsCmd)
	rootCmd.AddCommand(scriptsCmd)
}

// scriptPreview is the first non blank line of a script, cut to fit a table cell.
func scriptPreview(script string) string {
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 72 {
			return line[:72] + "..."
		}
		return line
	}
	return "<empty>"
}

var scriptsCmd = &cobra.Command{
	Use:   "scripts <url>",
	Short: "Lists the script elements of a page with the index vars and call expect.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := scriptsOpts()
		if err != nil {
			return err
		}
		client, err := newSession(webclient.BaseKind)
		if err != nil {
			return err
		}
		doc, err := client.RequestHTML(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Index", "Length", "Preview"})
		for i, script := range htmlutil.Scripts(doc) {
			t.AppendRow(table.Row{i, len(script), scriptPreview(script)})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
