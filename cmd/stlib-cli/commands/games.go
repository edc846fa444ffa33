package commands

import (
	"fmt"
	"os"
	"stlib/lib/platforms/steam/webapi"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var gamesFilter *[]int64

func init() {
	gamesFilter = gamesCmd.Flags().Int64Slice("app", nil, "Only list these appids, can be repeated.")
	rootCmd.AddCommand(gamesCmd)
}

var gamesCmd = &cobra.Command{
	Use:   "games <steamid64|profile url>",
	Short: "Lists the games owned by an account through the Steam Web API.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newSession(webapi.NewKind(webapi.Options{
			ApiUrl: config.ApiUrl,
			ApiKey: config.ApiKey,
		}))
		if err != nil {
			return err
		}

		steamid, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			steamid, err = client.ResolveVanityUrl(ctx, args[0])
			if err != nil {
				return err
			}
		}
		name, err := client.PersonaName(ctx, steamid)
		if err != nil {
			return err
		}
		games, err := client.OwnedGames(ctx, steamid, *gamesFilter)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle(fmt.Sprintf("%s (%d)", name, steamid))
		t.AppendHeader(table.Row{"AppId", "Name", "Playtime", "DLC", "Market", "Workshop"})
		for _, game := range games {
			playtime := time.Duration(game.PlaytimeForever) * time.Minute
			t.AppendRow(table.Row{
				game.AppId,
				game.Name,
				playtime.String(),
				game.HasDlc,
				game.HasMarket,
				game.HasWorkshop,
			})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d games", len(games))})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
