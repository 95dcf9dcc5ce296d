package main

import (
	"flag"

	"github.com/guildhub/guildhub/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	configFlag := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{ConfigPath: *configFlag}),
	)

	app.Run()
}
