package commands

import (
	"fmt"
	"os"
	"stlib/lib/money"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

var priceLocale *string

func init() {
	priceLocale = priceCmd.Flags().StringP("locale", "l", "", "A BCP 47 locale (ex. pt-BR), the process locale by default.")
	rootCmd.AddCommand(priceCmd)
}

var priceCmd = &cobra.Command{
	Use:   "price <amount>...",
	Short: "Formats raw amounts in cents as monetary values.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := money.ProcessLocale()
		if *priceLocale != "" {
			var err error
			tag, err = language.Parse(*priceLocale)
			if err != nil {
				return fmt.Errorf("invalid locale: %w", err)
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Raw", fmt.Sprintf("Formatted (%s)", tag)})
		for _, raw := range args {
			amount, err := money.ParseRaw(raw)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{raw, money.FormatIn(amount, tag)})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignRight},
			{Number: 2, Align: text.AlignRight},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
