// Command momoctl is the operator toolbox for the MoMo transaction API.
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/dvloznov/momo-tracker/internal/logger"
)

// context holds global options
type context struct {
	log zerolog.Logger
}

// cli commands / args available
var cli struct {
	Debug bool `help:"Enable debug logging."`

	Generate     generateCmd     `cmd:"" help:"Generate a synthetic SMS XML dataset."`
	Export       exportCmd       `cmd:"" help:"Load a source file and write it to an export sink."`
	Compare      compareCmd      `cmd:"" help:"Compare indexed lookup against a linear scan."`
	HashPassword hashPasswordCmd `cmd:"" name:"hash-password" help:"Print a bcrypt hash for auth.users."`
}

func main() {
	ctx := kong.Parse(&cli)

	level := "info"
	if cli.Debug {
		level = "debug"
	}
	log, err := logger.NewWithConfig(os.Stderr, logger.Config{Level: level, Console: true})
	ctx.FatalIfErrorf(err)

	err = ctx.Run(&context{log: log})
	ctx.FatalIfErrorf(err)
}
