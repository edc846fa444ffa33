package commands

import (
	"fmt"
	"os"
	"stlib/lib/webclient"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var getOpts func() (webclient.RequestOptions, error)
var getHeadersOnly *bool

func init() {
	getOpts = addRequestFlags(getCmd)
	getHeadersOnly = getCmd.Flags().BoolP("info", "i", false, "Only print the response metadata.")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <url> [-p key=value]... [-d key=value]...",
	Short: "Requests a url and prints the response body.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := getOpts()
		if err != nil {
			return err
		}
		client, err := newSession(webclient.BaseKind)
		if err != nil {
			return err
		}
		res, err := client.Request(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stderr)
		t.AppendRows([]table.Row{
			{"Status", res.Status()},
			{"Method", res.Method()},
			{"Url", res.Url()},
			{"Content-Type", res.ContentType()},
			{"Location", res.Location()},
			{"Cookies", len(res.Cookies())},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()

		if !*getHeadersOnly {
			fmt.Println(res.Text())
		}
		return nil
	},
}
