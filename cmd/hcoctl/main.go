// Command hcoctl is the Humanity Club admin console.
//
//	hcoctl                 interactive shell
//	hcoctl projects list   run one command and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"humanityclub/site/internal/client/cli"
	"humanityclub/site/internal/config"
	"humanityclub/site/internal/log"
)

func main() {
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *verbose, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "hcoctl:", cli.Describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, verbose bool, args []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	logger := log.NewCLI(verbose)

	app := cli.New(cfg, os.Stdin, os.Stdout, os.Stderr, logger)
	app.Init(ctx)

	if len(args) == 0 || args[0] == "shell" {
		return app.Shell(ctx)
	}
	return app.Execute(ctx, args)
}
