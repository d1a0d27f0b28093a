package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ghaggin/wallet/internal/model"
	"github.com/ghaggin/wallet/internal/session"
	"github.com/ghaggin/wallet/internal/web"
	"github.com/google/subcommands"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type serveCmd struct {
	g *Globals
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the local dashboard over http and websocket" }
func (*serveCmd) Usage() string {
	return `wallet serve

  Restores the stored session and serves the dashboard endpoints on the
  configured port until interrupted.
`
}
func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app := fx.New(
		c.g.Deps(),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger { return &fxevent.ZapLogger{Logger: log} }),
		fx.Provide(web.New),
		fx.Invoke(web.RegisterHooks),
	)
	app.Run()
	return subcommands.ExitSuccess
}

type loginCmd struct {
	g *Globals
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "exchange the wallet password for a session" }
func (*loginCmd) Usage() string {
	return `wallet login <password>

  Logs in to the wallet service and stores the session token.
`
}
func (*loginCmd) SetFlags(*flag.FlagSet) {}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "login takes exactly one argument: the password")
		return subcommands.ExitUsageError
	}

	err := c.g.oneShot(ctx, func(ctx context.Context, cc components) error {
		token, err := cc.API.Login(ctx, f.Arg(0))
		if err != nil {
			return err
		}
		if err := cc.Sessions.Save(ctx, token, 0); err != nil {
			return err
		}
		fmt.Fprintf(c.g.out(), "logged in until %s\n", cc.Sessions.Session().ExpiresAt.Format(time.RFC1123))
		return nil
	})
	return exit(err)
}

type logoutCmd struct {
	g *Globals
}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "forget the stored session" }
func (*logoutCmd) Usage() string {
	return `wallet logout
`
}
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (c *logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := c.g.oneShot(ctx, func(ctx context.Context, cc components) error {
		if err := cc.Sessions.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.g.out(), "logged out")
		return nil
	})
	return exit(err)
}

type statusCmd struct {
	g *Globals
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "report whether a valid session is stored" }
func (*statusCmd) Usage() string {
	return `wallet status
`
}
func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (c *statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := c.g.oneShot(ctx, func(ctx context.Context, cc components) error {
		sess, err := cc.Sessions.Load(ctx)
		switch {
		case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrExpired):
			fmt.Fprintf(c.g.out(), "%s (%v)\n", session.Unauthenticated, err)
			return nil
		case err != nil:
			return err
		}
		fmt.Fprintf(c.g.out(), "%s until %s\n", session.Authenticated, sess.ExpiresAt.Format(time.RFC1123))
		return nil
	})
	return exit(err)
}

type dashboardCmd struct {
	g    *Globals
	date string
	now  func() time.Time
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "print one month of the wallet" }
func (*dashboardCmd) Usage() string {
	return `wallet dashboard [-date <YYYYMM>]

  Loads a month using the stored session and prints its allocations and
  transactions. A rejected session is cleared.
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", "", "The month to load as YYYYMM (defaults to the current month).")
}

func (c *dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	month := c.date
	if month == "" {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		month = model.MonthKey(now())
	}

	err := c.g.oneShot(ctx, func(ctx context.Context, cc components) error {
		if _, err := cc.Sessions.Load(ctx); err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}
		snap, err := cc.Dashboard.LoadMonth(ctx, month)
		if err != nil {
			return err
		}
		return printSnapshot(c.g, month, snap)
	})
	return exit(err)
}

func printSnapshot(g *Globals, month string, snap *model.Snapshot) error {
	w := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Month\t%s\n", month)
	fmt.Fprintf(w, "Savings\tDBS %.2f\tBCA %.2f\n", snap.Savings.DBS, snap.Savings.BCA)
	fmt.Fprintf(w, "Planned\tSGD %.2f\tIDR %.2f\n", snap.Planned.SGD, snap.Planned.IDR)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "CATEGORY\tEXPENSE\tALLOC\tPERCENT\tLEVEL")
	for _, a := range snap.AllocationViews() {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.1f%%\t%s\n", a.Name, a.Expense, a.Alloc, a.Percent, a.Level)
	}
	totals := snap.Totals()
	fmt.Fprintf(w, "Total\t%.2f\t%.2f\t\t\n", totals.Expense, totals.Alloc)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ID\tDATE\tNAME\tCATEGORY\tAMOUNT\tACCOUNT\tDONE")
	for _, tx := range snap.Transactions {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s %.2f\t%s\t%t\n",
			tx.ID, tx.Date, tx.Name, tx.Category, tx.Currency, tx.Amount, tx.Account, tx.Done)
	}

	return w.Flush()
}

func exit(err error) subcommands.ExitStatus {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
