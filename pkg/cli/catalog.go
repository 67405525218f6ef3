package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/config"
)

var catalogCommand = &cli.Command{
	Name:  "catalog",
	Usage: "Inspect the locator catalog",
	Subcommands: []*cli.Command{
		{
			Name:  "validate",
			Usage: "Check the built-in catalog, optionally merged with an override file",
			Description: `Errors (missing screen identifiers, unknown platforms, empty or blank
descriptors) exit with code 1. Warnings flag chains that put a brittle
locator ahead of a more stable one.`,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"f"},
					Usage:   "Override catalog merged over the built-in one",
				},
				&cli.BoolFlag{
					Name:  "only",
					Usage: "Validate the file on its own, without the built-in catalog",
				},
			},
			Action: validateCatalog,
		},
	},
}

func validateCatalog(c *cli.Context) error {
	path, err := config.ExpandPath(c.String("file"))
	if err != nil {
		return err
	}

	var cat *catalog.Catalog
	switch {
	case c.Bool("only") && path == "":
		return fmt.Errorf("--only requires --file")
	case c.Bool("only"):
		cat, err = catalog.LoadFile(path)
	default:
		cat, err = catalog.Load(path)
	}
	if err != nil {
		return err
	}

	res := cat.Validate()
	w := c.App.Writer
	for _, issue := range res.Issues {
		sevColor := color(colorYellow)
		if issue.Severity == catalog.SeverityError {
			sevColor = color(colorRed)
		}
		fmt.Fprintf(w, "  %s%s%s\n", sevColor, issue, color(colorReset))
	}

	screens := cat.ScreenNames()
	elements := 0
	for _, s := range screens {
		names, _ := cat.ElementNames(s)
		elements += len(names)
	}
	fmt.Fprintf(w, "%d screen(s), %d element(s): %d error(s), %d warning(s)\n",
		len(screens), elements, len(res.Errors()), len(res.Warnings()))

	if err := res.Err(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
