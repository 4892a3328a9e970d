package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/backoffice/prdesk/internal/client/desk"
	"github.com/backoffice/prdesk/internal/client/querycache"
	"github.com/backoffice/prdesk/internal/client/session"
	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/infrastructure/fixture"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError(fs.Name() + ": " + err.Error())
	}
	return nil
}

// open resumes the saved session
func (a *app) open(ctx context.Context) (*desk.Desk, error) {
	sess, err := a.auth.Resume(ctx)
	if err != nil {
		return nil, err
	}
	return desk.New(sess,
		desk.WithLogger(a.log),
		desk.WithCommentScan(a.cfg.Workflow.OutcomeScanComments),
	), nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlags("register")
	username := fs.String("username", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", os.Getenv("PRDESK_PASSWORD"), "password")
	roleFlag := fs.String("role", "", "SE or PA")
	if err := parse(fs, args); err != nil {
		return err
	}
	role, ok := identity.ParseRole(*roleFlag)
	if !ok {
		return usageError("register: -role must be SE or PA")
	}
	sess, err := a.auth.Register(ctx, session.RegisterInput{
		Username: *username, Email: *email, Password: *password, Role: role,
	})
	if err != nil {
		return err
	}
	return a.printUser(sess.User(), sess.ExpiresAt())
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", os.Getenv("PRDESK_PASSWORD"), "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	sess, err := a.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return a.printUser(sess.User(), sess.ExpiresAt())
}

func (a *app) logout(ctx context.Context) error {
	sess, err := a.auth.Resume(ctx)
	if err != nil {
		// nothing usable is saved; make sure nothing is left behind either
		_ = a.store.Clear()
		return err
	}
	if err := sess.Logout(ctx); err != nil {
		return fmt.Errorf("signed out locally; server logout failed: %w", err)
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	sess, err := a.auth.Resume(ctx)
	if err != nil {
		return err
	}
	return a.printUser(sess.User(), sess.ExpiresAt())
}

func (a *app) sales(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("sales: missing subcommand")
	}
	sub, rest := args[0], args[1:]
	d, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer d.Cache().Close()

	switch sub {
	case "list":
		fs := newFlags("sales list")
		status := fs.String("status", "", "sales status filter")
		if err := parse(fs, rest); err != nil {
			return err
		}
		filter, err := parseFilter(*status)
		if err != nil {
			return err
		}
		prs, err := d.MyRequests(ctx, filter)
		if err != nil {
			return err
		}
		return a.printList(d, prs)
	case "stats":
		if err := parse(newFlags("sales stats"), rest); err != nil {
			return err
		}
		st, err := d.SalesStats(ctx)
		if err != nil {
			return err
		}
		return a.printSalesStats(st)
	case "get":
		id, err := oneID("sales get", rest)
		if err != nil {
			return err
		}
		pr, err := d.Request(ctx, id)
		if err != nil {
			return err
		}
		return a.printRequest(d, pr)
	case "draft", "submit":
		details, _, err := readDetails("sales "+sub, rest, false)
		if err != nil {
			return err
		}
		save := d.SaveDraft
		if sub == "submit" {
			save = d.Submit
		}
		pr, err := save(ctx, details)
		if err != nil {
			return err
		}
		return a.printRequest(d, pr)
	case "update", "resubmit":
		details, id, err := readDetails("sales "+sub, rest, true)
		if err != nil {
			return err
		}
		change := d.Update
		if sub == "resubmit" {
			change = d.Resubmit
		}
		pr, err := change(ctx, id, details)
		if err != nil {
			return err
		}
		return a.printRequest(d, pr)
	case "send":
		id, err := oneID("sales send", rest)
		if err != nil {
			return err
		}
		pr, err := d.SendToAnalyst(ctx, id)
		if err != nil {
			return err
		}
		return a.printRequest(d, pr)
	case "delete":
		id, err := oneID("sales delete", rest)
		if err != nil {
			return err
		}
		if err := d.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %s\n", id)
		return nil
	}
	return usageError(fmt.Sprintf("sales: unknown subcommand %q", sub))
}

func (a *app) analyst(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("pa: missing subcommand")
	}
	sub, rest := args[0], args[1:]
	d, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer d.Cache().Close()

	switch sub {
	case "available", "mine":
		fs := newFlags("pa " + sub)
		status := fs.String("status", "", "analyst status filter")
		if err := parse(fs, rest); err != nil {
			return err
		}
		filter, err := parseFilter(*status)
		if err != nil {
			return err
		}
		list := d.Available
		if sub == "mine" {
			list = d.Mine
		}
		prs, err := list(ctx, filter)
		if err != nil {
			return err
		}
		return a.printList(d, prs)
	case "stats":
		if err := parse(newFlags("pa stats"), rest); err != nil {
			return err
		}
		st, err := d.AnalystStats(ctx)
		if err != nil {
			return err
		}
		return a.printAnalystStats(st)
	case "get", "assign":
		id, err := oneID("pa "+sub, rest)
		if err != nil {
			return err
		}
		load := d.Request
		if sub == "assign" {
			load = d.Assign
		}
		pr, err := load(ctx, id)
		if err != nil {
			return err
		}
		return a.printRequest(d, pr)
	case "approve", "reject", "action":
		fs := newFlags("pa " + sub)
		comment := fs.String("comment", "", "comment for the Sales Executive")
		id, err := idThenFlags(fs, rest)
		if err != nil {
			return err
		}
		decide := d.Approve
		switch sub {
		case "reject":
			decide = d.Reject
		case "action":
			decide = d.RequestAction
		}
		pr, err := decide(ctx, id, *comment)
		if err != nil {
			return err
		}
		return a.printRequest(d, pr)
	}
	return usageError(fmt.Sprintf("pa: unknown subcommand %q", sub))
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := newFlags("watch")
	interval := fs.Duration("interval", a.cfg.Client.PollInterval, "refresh interval")
	if err := parse(fs, args); err != nil {
		return err
	}
	d, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer d.Cache().Close()

	fmt.Fprintf(a.out, "Watching as %s (%s), every %s. Ctrl-C to stop.\n",
		d.User().Username, d.User().Role.DisplayName(), *interval)
	return d.Watch(ctx, *interval, func(k querycache.Key, v any) {
		prs, ok := v.([]*pricing.PricingRequest)
		if !ok {
			return
		}
		fmt.Fprintf(a.out, "\n== %s  %s ==\n", listTitle(k.Kind), time.Now().Format(time.TimeOnly))
		if err := a.printList(d, prs); err != nil {
			a.log.Warn("Failed to render list")
		}
	})
}

func listTitle(kind querycache.Kind) string {
	switch kind {
	case querycache.KindSalesList:
		return "My requests"
	case querycache.KindAvailable:
		return "Available"
	case querycache.KindMine:
		return "Assigned to me"
	}
	return string(kind)
}

func parseFilter(label string) (pricing.Status, error) {
	status := pricing.ParseStatus(label)
	if status == pricing.StatusUnknown {
		return "", usageError(fmt.Sprintf("unknown status %q", label))
	}
	return status, nil
}

func oneID(name string, args []string) (string, error) {
	if len(args) != 1 || strings.HasPrefix(args[0], "-") {
		return "", usageError(name + ": expects exactly one pricing request id")
	}
	return args[0], nil
}

// idThenFlags accepts "<id> -flag v" as well as "-flag v <id>"
func idThenFlags(fs *flag.FlagSet, args []string) (string, error) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if err := parse(fs, args[1:]); err != nil {
			return "", err
		}
		if fs.NArg() > 0 {
			return "", usageError(fs.Name() + ": unexpected arguments")
		}
		return args[0], nil
	}
	if err := parse(fs, args); err != nil {
		return "", err
	}
	return oneID(fs.Name(), fs.Args())
}

// readDetails reads request details from a JSON file in the wire format,
// stdin with -file -, or the demo generator with -fake
func readDetails(name string, args []string, withID bool) (pricing.Details, string, error) {
	fs := newFlags(name)
	file := fs.String("file", "", "JSON file with the request fields, - for stdin")
	fake := fs.Bool("fake", false, "generate demo details")
	var id string
	var err error
	if withID {
		id, err = idThenFlags(fs, args)
	} else {
		err = parse(fs, args)
		if err == nil && fs.NArg() > 0 {
			err = usageError(name + ": unexpected arguments")
		}
	}
	if err != nil {
		return pricing.Details{}, "", err
	}

	switch {
	case *fake && *file != "":
		return pricing.Details{}, "", usageError(name + ": use -file or -fake, not both")
	case *fake:
		return fixture.NewGenerator(uint64(time.Now().UnixNano())).Details(), id, nil
	case *file == "":
		return pricing.Details{}, "", usageError(name + ": -file or -fake is required")
	}

	var r io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return pricing.Details{}, "", err
		}
		defer f.Close()
		r = f
	}
	var w dto.PricingRequestWire
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return pricing.Details{}, "", fmt.Errorf("reading %s: %w", *file, err)
	}
	details, err := dto.DetailsFromWire(w)
	if err != nil {
		return pricing.Details{}, "", err
	}
	return details, id, nil
}
