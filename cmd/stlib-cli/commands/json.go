package commands

import (
	"stlib/lib/webclient"

	"github.com/spf13/cobra"
)

var jsonOpts func() (webclient.RequestOptions, error)

func init() {
	jsonOpts = addRequestFlags(jsonCmd)
	rootCmd.AddCommand(jsonCmd)
}

var jsonCmd = &cobra.Command{
	Use:   "json <url> [-p key=value]...",
	Short: "Requests a url that answers with a json object and pretty prints it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := jsonOpts()
		if err != nil {
			return err
		}
		client, err := newSession(webclient.BaseKind)
		if err != nil {
			return err
		}
		object, err := client.RequestJSON(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		return printJSON(object)
	},
}
