// Command awb is the command-line interface for the automated wiki
// batch editor.
package main

import (
	"strconv"

	"github.com/alecthomas/kong"
	"gitlab.com/tozd/go/cli"
	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb"
)

func main() {
	var config awb.Config
	cli.Run(&config, kong.Vars{
		"defaultSessionDir":      awb.DefaultSessionDir,
		"defaultCacheSize":       strconv.Itoa(awb.DefaultCacheSize),
		"defaultMinEditInterval": awb.DefaultMinEditInterval.String(),
		"defaultMaxlag":          strconv.Itoa(awb.DefaultMaxlag),
	}, func(ctx *kong.Context) errors.E {
		return errors.WithStack(ctx.Run(&config.Globals))
	})
}
