// Command finctl is the operator console for fintrack: it records
// transactions, cards, subscriptions and budgets from JSON documents and
// reports card usage, budget progress and notifications.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const version = "0.3.0"

// env carries what every command needs.
type env struct {
	app *cli.App
	in  io.Reader
	out printer
	now func() time.Time
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"add transaction", "record a transaction from JSON (-file or stdin)", addTransaction},
	{"add receipt", "record a receipt, creating its category when unknown", addReceipt},
	{"add card", "register a credit card", addCard},
	{"add subscription", "register a recurring expense", addSubscription},
	{"add budget", "set a monthly category budget", addBudget},
	{"tx list", "list transactions of a month", listTransactions},
	{"tx delete", "delete a transaction", deleteTransaction},
	{"card list", "list cards with their current usage", listCards},
	{"card usage", "show the open invoice of a card", cardUsage},
	{"card summary", "show debt and next cycle dates of a card", cardSummary},
	{"budget progress", "show spending against each budget of a month", budgetProgress},
	{"subs upcoming", "list renewals in the next days", upcomingRenewals},
	{"subs cancel", "deactivate a subscription", cancelSubscription},
	{"notifications list", "list notifications", listNotifications},
	{"notifications read", "mark one notification (-id) or all as read", readNotifications},
	{"materialize", "create the transactions of subscriptions due today", materialize},
	{"notify", "generate due-date, budget and renewal notifications", generateNotifications},
	{"seed", "install the default category catalogue", seedCategories},
}

func main() {
	flag.Usage = usage
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("finctl version %s\n", version)
		return
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cmd, rest, ok := lookup(flag.Args())
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", strings.Join(flag.Args(), " "))
		usage()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	out := printer{w: os.Stdout}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		out.Error(err.Error())
		os.Exit(1)
	}
	// Commands print their own results; only warnings reach the log.
	cfg.LogLevel = "warn"
	logger := cli.SetupLogger(cfg, applog.ComponentCLI)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		out.Error(err.Error())
		os.Exit(1)
	}
	defer app.Close()

	e := &env{app: app, in: os.Stdin, out: out, now: time.Now}
	if err := cmd.run(ctx, e, rest); err != nil {
		reportError(out, err)
		app.Close()
		os.Exit(1)
	}
}

// lookup matches the longest command name at the start of args.
func lookup(args []string) (command, []string, bool) {
	if len(args) >= 2 {
		name := args[0] + " " + args[1]
		for _, c := range commands {
			if c.name == name {
				return c, args[2:], true
			}
		}
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c, args[1:], true
		}
	}
	return command{}, nil, false
}

func reportError(out printer, err error) {
	var verrs core.ValidationErrors
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verrs):
		out.Error("invalid input")
		for _, v := range verrs {
			out.Warning("%s: %s", v.Field, v.Reason)
		}
	case errors.As(err, &verr):
		out.Error("invalid input")
		out.Warning("%s: %s", verr.Field, verr.Reason)
	case errors.Is(err, core.ErrNotFound):
		out.Error("not found: " + err.Error())
	default:
		out.Error(err.Error())
	}
}

func usage() {
	names := make([]string, 0, len(commands))
	width := 0
	for _, c := range commands {
		names = append(names, c.name)
		width = max(width, len(c.name))
	}
	sort.Strings(names)

	fmt.Fprint(os.Stderr, `finctl - personal finance console

Usage:
  finctl [flags] <command> [command flags]

Commands:
`)
	for _, name := range names {
		c, _, _ := lookup(strings.Fields(name))
		fmt.Fprintf(os.Stderr, "  %-*s  %s\n", width, c.name, c.summary)
	}
	fmt.Fprint(os.Stderr, `
Examples:
  # Record a transaction
  echo '{"amount": 42.9, "description": "Mercado", "categoryId": "...", "type": "expense", "status": "paid"}' \
    | finctl add transaction -owner alice

  # Budget progress for March 2025
  finctl budget progress -owner alice -month 3 -year 2025

`)
}
