// Command prdesk is the terminal client of the pricing request desk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/backoffice/prdesk/internal/client/session"
	"github.com/backoffice/prdesk/internal/client/transport"
	"github.com/backoffice/prdesk/internal/infrastructure/config"
	"github.com/backoffice/prdesk/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const usage = `Usage: prdesk [flags] <command> [args]

Account:
  register   Create an account (-username -email -password -role SE|PA)
  login      Sign in (-email -password, or PRDESK_PASSWORD)
  logout     Sign out and forget the saved token
  whoami     Show the signed-in user

Sales Executive:
  sales list [-status S]         List your pricing requests
  sales stats                    Count your requests by status
  sales get <id>                 Show one request
  sales draft  (-file F | -fake) Save a draft
  sales submit (-file F | -fake) Create and submit in one step
  sales update <id> (-file F | -fake)
  sales resubmit <id> (-file F | -fake)
  sales send <id>                Submit an existing draft
  sales delete <id>              Delete a draft

Pricing Analyst:
  pa available [-status S]       Unassigned requests waiting for review
  pa mine [-status S]            Requests assigned to you
  pa stats                       Counts for the pool and your queue
  pa get <id>
  pa assign <id>
  pa approve <id> [-comment C]
  pa reject <id> -comment C
  pa action <id> -comment C      Send back to the Sales Executive

  watch [-interval D]            Refresh your lists until interrupted

Flags:
`

type app struct {
	cfg    *config.Config
	log    *zap.Logger
	out    io.Writer
	format string
	client *transport.Client
	store  *session.FileTokenStore
	auth   *session.Authenticator
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("prdesk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath string
		server     string
		format     string
		verbose    bool
	)
	fs.StringVar(&configPath, "config", "", "Path to a config file")
	fs.StringVar(&server, "server", "", "API base URL (overrides client.base_url)")
	fs.StringVar(&format, "o", "table", "Output format: table, json or yaml")
	fs.BoolVar(&verbose, "v", false, "Log API calls to stderr")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if !validFormat(format) {
		fmt.Fprintf(stderr, "unknown output format %q\n", format)
		return 2
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if server != "" {
		cfg.Client.BaseURL = server
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	client, err := transport.New(transport.Config{BaseURL: cfg.Client.BaseURL, Timeout: cfg.Client.Timeout},
		transport.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	store := session.NewFileTokenStore(cfg.Client.TokenFile)
	a := &app{
		cfg:    cfg,
		log:    log,
		out:    stdout,
		format: format,
		client: client,
		store:  store,
		auth:   session.NewAuthenticator(client, store, session.WithLogger(log)),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(stderr, hint)
		}
		var uerr usageError
		if errors.As(err, &uerr) {
			return 2
		}
		return 1
	}
	return 0
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "sales":
		return a.sales(ctx, args)
	case "pa":
		return a.analyst(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	}
	return usageError(fmt.Sprintf("unknown command %q", command))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

type usageError string

func (e usageError) Error() string { return string(e) }

func hintFor(err error) string {
	switch {
	case errors.Is(err, session.ErrNoSession), errors.Is(err, transport.ErrUnauthorized):
		return "hint: sign in with `prdesk login`"
	case errors.Is(err, transport.ErrNetwork):
		return "hint: is the server running? set -server or client.base_url"
	}
	return ""
}
