package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"minitracker/internal/core"
	"minitracker/internal/services"
	"minitracker/internal/session"
)

// ErrUsage is returned for unknown commands and bad flags; the usage text
// has already been printed.
var ErrUsage = errors.New("usage error")

const usage = `usage: minitracker <command> [flags]

commands:
  login     -email E [-password P]     log in and remember the session
  register  -name -surname -username -email -password
  logout                               forget the current session
  whoami                               show the current session
  dashboard                            show the dashboard for your role
  revenues  list | add -amount A [-date D] | rm -id N
  expenses  list | add -amount A [-date D] [-type T] | rm -id N
  profile   show | edit [-name] [-surname] [-username] [-email]
  users     list | lock -id N | unlock -id N   (admin)
`

// App dispatches command-line invocations to the services.
type App struct {
	Accounts  *services.AccountService
	Ledger    *services.LedgerService
	Dashboard *services.DashboardService

	Out io.Writer
	// In supplies the password when -password is omitted.
	In io.Reader
	// Today returns the default entry date.
	Today func() time.Time
}

type command func(ctx context.Context, args []string) error

func (a *App) commands() map[string]command {
	return map[string]command{
		"login":     a.login,
		"register":  a.register,
		"logout":    a.logout,
		"whoami":    a.whoami,
		"dashboard": a.dashboard,
		"revenues":  a.revenues,
		"expenses":  a.expenses,
		"profile":   a.profile,
		"users":     a.users,
	}
}

// Run executes args[0] with the remaining arguments.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usageError()
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(a.Out, usage)
		return nil
	}
	cmd, ok := a.commands()[args[0]]
	if !ok {
		fmt.Fprintf(a.Out, "unknown command %q\n", args[0])
		return a.usageError()
	}
	return cmd(ctx, args[1:])
}

func (a *App) usageError() error {
	fmt.Fprint(a.Out, usage)
	return ErrUsage
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

func (a *App) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return ErrUsage
	}
	return nil
}

func (a *App) today() string {
	now := time.Now
	if a.Today != nil {
		now = a.Today
	}
	return now().Format(core.DateLayout)
}

func (a *App) current(ctx context.Context) (*core.Session, error) {
	sess, err := a.Accounts.Current(ctx)
	if errors.Is(err, session.ErrNotAuthenticated) {
		return nil, fmt.Errorf("%w: run `minitracker login` first", err)
	}
	return sess, err
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin when omitted)")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if *password == "" && a.In != nil {
		fmt.Fprint(a.Out, "Password: ")
		line, err := bufio.NewReader(a.In).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	sess, err := a.Accounts.Login(ctx, *email, *password, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Logged in as user %d (%s)\n", sess.UserID, sess.Role)
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	var r core.Registration
	fs.StringVar(&r.Name, "name", "", "first name")
	fs.StringVar(&r.Surname, "surname", "", "last name")
	fs.StringVar(&r.Username, "username", "", "username")
	fs.StringVar(&r.Email, "email", "", "email")
	fs.StringVar(&r.Password, "password", "", "password, at least 8 characters")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := a.Accounts.Register(ctx, r); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Account created. Log in with `minitracker login`.")
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	sess, err := a.Accounts.Current(ctx)
	if errors.Is(err, session.ErrNotAuthenticated) {
		fmt.Fprintln(a.Out, "Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.Accounts.Logout(ctx, sess); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Logged out.")
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "user %d (%s), logged in %s\n",
		sess.UserID, sess.Role, sess.CreatedAt.Format(time.RFC3339))
	return nil
}

func (a *App) dashboard(ctx context.Context, _ []string) error {
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}
	d, err := a.Dashboard.Load(ctx, sess)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, RenderDashboard(d))
	return nil
}

// subcommand splits "list", "add" or "rm" off args.
func subcommand(args []string, allowed ...string) (string, []string, bool) {
	if len(args) == 0 {
		return "", nil, false
	}
	for _, s := range allowed {
		if args[0] == s {
			return s, args[1:], true
		}
	}
	return "", nil, false
}

func (a *App) revenues(ctx context.Context, args []string) error {
	sub, rest, ok := subcommand(args, "list", "add", "rm")
	if !ok {
		return a.usageError()
	}
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		items, err := a.Ledger.Revenues(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Out, RenderRevenues(items))
	case "add":
		fs := a.flags("revenues add")
		date := fs.String("date", a.today(), "date, YYYY-MM-DD")
		amount := fs.String("amount", "", "amount, e.g. 12.50 or 12,50")
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		value, err := core.ParseAmount(*amount)
		if err != nil {
			return err
		}
		created, err := a.Ledger.AddRevenue(ctx, sess, core.Revenue{Date: *date, Amount: value})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Revenue %d saved: %s on %s\n", created.ID, core.FormatEUR(created.Amount), created.Date)
	case "rm":
		id, err := a.idFlag("revenues rm", rest)
		if err != nil {
			return err
		}
		if err := a.Ledger.RemoveRevenue(ctx, sess, id); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Revenue %d deleted\n", id)
	}
	return nil
}

func (a *App) expenses(ctx context.Context, args []string) error {
	sub, rest, ok := subcommand(args, "list", "add", "rm")
	if !ok {
		return a.usageError()
	}
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		items, err := a.Ledger.Expenses(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Out, RenderExpenses(items))
	case "add":
		fs := a.flags("expenses add")
		date := fs.String("date", a.today(), "date, YYYY-MM-DD")
		amount := fs.String("amount", "", "amount, e.g. 12.50 or 12,50")
		typ := fs.String("type", "", "category")
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		value, err := core.ParseAmount(*amount)
		if err != nil {
			return err
		}
		created, err := a.Ledger.AddExpense(ctx, sess, core.Expense{Date: *date, Amount: value, Type: strings.TrimSpace(*typ)})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Expense %d saved: %s on %s\n", created.ID, core.FormatEUR(created.Amount), created.Date)
	case "rm":
		id, err := a.idFlag("expenses rm", rest)
		if err != nil {
			return err
		}
		if err := a.Ledger.RemoveExpense(ctx, sess, id); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Expense %d deleted\n", id)
	}
	return nil
}

func (a *App) idFlag(name string, args []string) (int64, error) {
	fs := a.flags(name)
	id := fs.Int64("id", 0, "entry id")
	if err := a.parse(fs, args); err != nil {
		return 0, err
	}
	return *id, nil
}

func (a *App) profile(ctx context.Context, args []string) error {
	sub, rest, ok := subcommand(args, "show", "edit")
	if !ok {
		return a.usageError()
	}
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}

	u, err := a.Accounts.Profile(ctx, sess)
	if err != nil {
		return err
	}
	if sub == "edit" {
		fs := a.flags("profile edit")
		name := fs.String("name", u.Name, "first name")
		surname := fs.String("surname", u.Surname, "last name")
		username := fs.String("username", u.Username, "username")
		email := fs.String("email", u.Email, "email")
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		u, err = a.Accounts.UpdateProfile(ctx, sess, core.ProfileUpdate{
			Name: *name, Surname: *surname, Username: *username, Email: *email,
		})
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(a.Out, RenderProfile(u))
	return nil
}

func (a *App) users(ctx context.Context, args []string) error {
	sub, rest, ok := subcommand(args, "list", "lock", "unlock")
	if !ok {
		return a.usageError()
	}
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}

	if sub == "list" {
		users, err := a.Accounts.ListUsers(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Out, RenderUsers(users))
		return nil
	}

	id, err := a.idFlag("users "+sub, rest)
	if err != nil {
		return err
	}
	if err := a.Accounts.SetLocked(ctx, sess, id, sub == "lock"); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "User %d %sed\n", id, sub)
	return nil
}
