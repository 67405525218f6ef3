package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pageflow/pkg/executor"
	"github.com/devicelab-dev/pageflow/pkg/scenarios"
)

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the built-in scenarios",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "Only list scenarios with any of these tags (" + strings.Join(scenarios.Tags(), ", ") + ")",
		},
	},
	Action: func(c *cli.Context) error {
		selected := executor.Filter{IncludeTags: c.StringSlice("tag")}.Apply(scenarios.All())
		if len(selected) == 0 {
			return fmt.Errorf("no scenario has tag %s", strings.Join(c.StringSlice("tag"), " or "))
		}

		tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTAGS\tDESCRIPTION")
		for _, sc := range selected {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", sc.Name, strings.Join(sc.Tags, ","), sc.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "\n%d scenario(s)\n", len(selected))
		return nil
	},
}
