package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
)

const appName = "HCO"

// Shell runs the interactive console until exit, EOF or ctx is done. The
// session store is checked in the background for the lifetime of the shell.
func (a *App) Shell(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.store.Run(ctx)

	fmt.Fprintln(a.out, figure.NewFigure(appName, "cybermedium", true).String())
	fmt.Fprintln(a.out, "Humanity Club admin console. Type 'help' for commands, 'exit' to quit.")

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(a.out, a.promptLine())

		line, err := a.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}

		if err := a.Execute(ctx, args); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			fmt.Fprintf(a.errOut, "error: %s\n", Describe(err))
		}
	}
}

func (a *App) promptLine() string {
	view := a.currentView()
	if u, ok := a.store.User(); ok {
		return fmt.Sprintf("%s@hco %s> ", u.Email, view)
	}
	return fmt.Sprintf("hco %s> ", view)
}
