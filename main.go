package main

import (
	"github.com/alecthomas/kong"
	"gorm.io/gorm"
)

type Context struct {
	Debug bool

	Dialector gorm.Dialector
	Config    gorm.Config
}

var cli struct {
	Debug bool   `help:"Enable debug mode."`
	DSN   string `required:"" help:"Data source name of the database."`

	Serve         ServeCmd         `cmd:"" help:"Serve the gather API."`
	AutoMigrate   AutoMigrateCmd   `cmd:"" help:"Create or update the database schema."`
	CreateAccount CreateAccountCmd `cmd:"" help:"Create a new account."`
	HouseKeeping  HouseKeepingCmd  `cmd:"" help:"Delete stale tokens and orphaned rows."`
}

func main() {
	ctx := kong.Parse(&cli)
	err := ctx.Run(&Context{
		Debug:     cli.Debug,
		Dialector: newDialector(cli.DSN),
	})
	ctx.FatalIfErrorf(err)
}
