// Package cli implements hcoctl, the site's admin console. Commands are
// addressed like the admin views they replace and pass through the route
// guard before they run.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/client/apiclient"
	"humanityclub/site/internal/client/guard"
	"humanityclub/site/internal/client/session"
	"humanityclub/site/internal/config"
)

var ErrUnknownCommand = errors.New("unknown command")

// API is the slice of the request client the console drives.
type API interface {
	Login(ctx context.Context, email, password string) (session.User, error)
	Logout(ctx context.Context)
	Me(ctx context.Context) (session.User, error)

	Projects(ctx context.Context) ([]apiclient.Project, error)
	CreateProject(ctx context.Context, title, description, image string) (apiclient.Project, error)
	UpdateProject(ctx context.Context, id, title, description string) (apiclient.Project, error)
	ReplaceProjectImage(ctx context.Context, id string, file apiclient.File) (apiclient.Project, error)
	DeleteProject(ctx context.Context, id string) error

	Albums(ctx context.Context) ([]apiclient.Album, error)
	GalleryImages(ctx context.Context, page, perPage int) (apiclient.ImagePage, error)
	UploadGalleryImage(ctx context.Context, albumID string, file apiclient.File) (apiclient.Image, error)
	DeleteGalleryImage(ctx context.Context, id string) error

	Donation(ctx context.Context) (apiclient.Donation, error)
	UpdateDonation(ctx context.Context, d apiclient.Donation) (apiclient.Donation, error)
	UploadQR(ctx context.Context, file apiclient.File) (apiclient.Donation, error)
	RemoveQR(ctx context.Context) (apiclient.Donation, error)

	Founder(ctx context.Context) (apiclient.Founder, error)
	UpdateFounder(ctx context.Context, message, name, title string) (apiclient.Founder, error)
	UploadFounderImage(ctx context.Context, file apiclient.File) (apiclient.Founder, error)

	SendContact(ctx context.Context, name, email, message string) error
}

type App struct {
	api   API
	store *session.Store
	guard *guard.Guard

	in           *bufio.Reader
	out          io.Writer
	errOut       io.Writer
	readPassword func() (string, error)

	mu       sync.Mutex // guards view
	view     string
	commands map[string]command
}

// syncWriter serialises writes from the shell and the session store.
type syncWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (s syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// New wires the console to the API described by cfg, persisting the session
// in cfg.SessionFile.
func New(cfg *config.ClientConfig, in io.Reader, out, errOut io.Writer, log zerolog.Logger) *App {
	a := &App{}
	store := a.newStore(session.Options{
		Storage:       session.NewFileStorage(cfg.SessionFile),
		CheckInterval: cfg.CheckInterval,
		WarnThreshold: cfg.WarnThreshold,
		Log:           log,
	})
	a.setup(apiclient.New(cfg, store, log), store, in, out, errOut)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.readPassword = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(a.out)
			return string(b), err
		}
	}
	return a
}

func newApp(api API, opts session.Options, in io.Reader, out, errOut io.Writer) *App {
	a := &App{}
	store := a.newStore(opts)
	a.setup(api, store, in, out, errOut)
	return a
}

// newStore routes session notices and redirects to the console.
func (a *App) newStore(opts session.Options) *session.Store {
	opts.Notify = a.notify
	opts.Redirect = a.redirect
	return session.NewStore(opts)
}

func (a *App) setup(api API, store *session.Store, in io.Reader, out, errOut io.Writer) {
	a.api = api
	a.store = store
	a.guard = guard.New(store)
	a.in = bufio.NewReader(in)
	writeMu := &sync.Mutex{}
	a.out = syncWriter{mu: writeMu, w: out}
	a.errOut = syncWriter{mu: writeMu, w: errOut}
	a.view = guard.HomePath
	a.readPassword = func() (string, error) { return a.readLine() }
	a.commands = a.commandTable()
}

// Init loads the persisted session.
func (a *App) Init(ctx context.Context) {
	a.store.Init(ctx)
}

func (a *App) notify(n session.Notice) {
	fmt.Fprintf(a.errOut, "[%s] %s\n", n.Level, n.Message)
}

func (a *App) redirect(path string) {
	a.setView(path)
}

func (a *App) setView(path string) {
	a.mu.Lock()
	a.view = path
	a.mu.Unlock()
}

func (a *App) currentView() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Execute runs one command line, consulting the route guard first.
func (a *App) Execute(ctx context.Context, args []string) error {
	cmd, rest, ok := a.lookup(args)
	if !ok {
		return fmt.Errorf("%w: %s (try 'help')", ErrUnknownCommand, strings.Join(args, " "))
	}
	if cmd.route == nil {
		return cmd.run(ctx, rest)
	}

	decision := a.guard.Evaluate(*cmd.route)
	switch decision.Action {
	case guard.Placeholder:
		fmt.Fprintln(a.out, "Checking session...")
		return nil
	case guard.RedirectHome:
		a.setView(decision.Target)
		fmt.Fprintln(a.errOut, "This command needs an admin account.")
		return nil
	case guard.RedirectLogin:
		a.setView(decision.Target)
		fmt.Fprintln(a.errOut, "Please login to continue.")
		if err := a.login(ctx, nil); err != nil {
			return err
		}
		if guard.ReturnPath(decision.Target) != cmd.route.Path {
			return nil
		}
		return a.Execute(ctx, args)
	}

	a.setView(cmd.route.Path)
	return cmd.run(ctx, rest)
}

func (a *App) lookup(args []string) (command, []string, bool) {
	if len(args) == 0 {
		return command{}, nil, false
	}
	if len(args) > 1 {
		if cmd, ok := a.commands[args[0]+" "+args[1]]; ok {
			return cmd, args[2:], true
		}
	}
	cmd, ok := a.commands[args[0]]
	return cmd, args[1:], ok
}

// Describe renders err for the terminal. API failures show their
// user-facing message only.
func Describe(err error) string {
	if appErr, ok := apperr.As(err); ok {
		if appErr.Detail != "" {
			return appErr.Message + " (" + appErr.Detail + ")"
		}
		return appErr.Message
	}
	return err.Error()
}

func (a *App) help() {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "Available commands:")
	for _, name := range names {
		cmd := a.commands[name]
		scope := "public"
		if cmd.route != nil {
			scope = cmd.route.Path
		}
		fmt.Fprintf(a.out, "  %-28s %s\n", cmd.usage, scope)
	}
}
