package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/notify"
	"fintrack/internal/seed"
	"fintrack/internal/services"
	"fintrack/internal/validate"
)

const dateLayout = "2006-01-02"

// flags returns a command flag set with the -owner flag most commands need.
func flags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("finctl "+name, flag.ContinueOnError)
	owner := fs.String("owner", os.Getenv("FINCTL_OWNER"), "Owner id (default $FINCTL_OWNER)")
	return fs, owner
}

func parse(fs *flag.FlagSet, args []string, owner *string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if owner != nil && *owner == "" {
		return errors.New("-owner is required")
	}
	return nil
}

// readDocument returns the contents of path, or of stdin when path is empty.
func (e *env) readDocument(path string) ([]byte, error) {
	if path == "" {
		b, err := io.ReadAll(e.in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// decode reads the -file document and validates it against schema.
func decode[T any](e *env, schema validate.Schema, path string) (T, error) {
	var zero T
	doc, err := e.readDocument(path)
	if err != nil {
		return zero, err
	}
	v, err := validate.Default()
	if err != nil {
		return zero, err
	}
	return validate.Decode[T](v, schema, doc)
}

func (e *env) location() *time.Location {
	return e.app.Deps.Normalizer.Location()
}

func (e *env) date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(e.location()).Format(dateLayout)
}

// period resolves -month/-year flags, defaulting to the current month.
func (e *env) period(month, year int) (int, int) {
	now := e.now().In(e.location())
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return month, year
}

func addTransaction(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("add transaction")
	file := fs.String("file", "", "JSON document (default stdin)")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	in, err := decode[services.TransactionInput](e, validate.Transaction, *file)
	if err != nil {
		return err
	}
	tx, err := e.app.Transactions.CreateManual(ctx, *owner, in)
	if err != nil {
		return err
	}
	e.printTransaction("Transaction recorded", tx)
	return nil
}

func addReceipt(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("add receipt")
	file := fs.String("file", "", "JSON document (default stdin)")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	in, err := decode[services.ReceiptInput](e, validate.Receipt, *file)
	if err != nil {
		return err
	}
	tx, err := e.app.Transactions.CreateFromReceipt(ctx, *owner, in)
	if err != nil {
		return err
	}
	e.printTransaction("Receipt recorded", tx)
	return nil
}

func (e *env) printTransaction(title string, tx *core.Transaction) {
	e.out.Success("%s: %s", title, tx.ID)
	e.out.Row("Description", tx.Description)
	e.out.Row("Amount", core.FormatAmount(tx.Amount))
	e.out.Row("Category", tx.CategoryName)
	e.out.Row("Type", tx.Type)
	e.out.Row("Status", tx.Status)
	e.out.Row("Due date", e.date(tx.DueDate))
	if tx.CreditCardID != nil {
		e.out.Row("Card", *tx.CreditCardID)
	}
}

func addCard(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("add card")
	file := fs.String("file", "", "JSON document (default stdin)")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	in, err := decode[services.CreditCardInput](e, validate.CreditCard, *file)
	if err != nil {
		return err
	}
	card, err := e.app.Cards.Create(ctx, *owner, in)
	if err != nil {
		return err
	}
	e.out.Success("Card registered: %s", card.ID)
	e.out.Row("Name", fmt.Sprintf("%s (%s ****%s)", card.Name, card.Flag, card.LastFourDigits))
	e.out.Row("Limit", core.FormatAmount(card.Limit))
	e.out.Row("Closing day", card.ClosingDay)
	e.out.Row("Due day", card.DueDay)
	return nil
}

func addSubscription(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("add subscription")
	file := fs.String("file", "", "JSON document (default stdin)")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	in, err := decode[services.SubscriptionInput](e, validate.Subscription, *file)
	if err != nil {
		return err
	}
	sub, err := e.app.Subscriptions.Create(ctx, *owner, in)
	if err != nil {
		return err
	}
	e.out.Success("Subscription registered: %s", sub.ID)
	e.out.Row("Description", sub.Description)
	e.out.Row("Amount", core.FormatAmount(sub.Amount))
	e.out.Row("Frequency", sub.Frequency)
	return nil
}

func addBudget(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("add budget")
	file := fs.String("file", "", "JSON document (default stdin)")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	in, err := decode[services.BudgetInput](e, validate.Budget, *file)
	if err != nil {
		return err
	}
	b, err := e.app.Budgets.Create(ctx, *owner, in)
	if err != nil {
		return err
	}
	e.out.Success("Budget set: %s", b.ID)
	e.out.Row("Category", b.CategoryName)
	e.out.Row("Period", fmt.Sprintf("%02d/%d", b.Month, b.Year))
	e.out.Row("Amount", core.FormatAmount(b.Amount))
	return nil
}

func listTransactions(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("tx list")
	month := fs.Int("month", 0, "Month 1-12 (default current)")
	year := fs.Int("year", 0, "Year (default current)")
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", 10, "Page size, at most 100")
	txType := fs.String("type", "", "expense or income")
	status := fs.String("status", "", "paid or pending")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	m, y := e.period(*month, *year)
	res, err := e.app.Transactions.List(ctx, *owner, services.TransactionQuery{
		Type:   core.TransactionType(*txType),
		Status: core.TransactionStatus(*status),
		Month:  m,
		Year:   y,
		Page:   *page,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}

	e.out.Header(fmt.Sprintf("Transactions %02d/%d", m, y))
	if len(res.Items) == 0 {
		e.out.Info("No transactions")
		return nil
	}
	for _, tx := range res.Items {
		e.out.Info("%s  %-8s %-7s %10s  %s [%s]", e.date(&tx.CreatedAt), tx.Type, tx.Status,
			core.FormatAmount(tx.Amount), tx.Description, tx.CategoryName)
	}
	e.out.Info("Page %d of %d (%d total)", res.Page, res.TotalPages, res.Total)
	return nil
}

func deleteTransaction(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("tx delete")
	id := fs.String("id", "", "Transaction id")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	if err := e.app.Transactions.Delete(ctx, *owner, *id); err != nil {
		return err
	}
	e.out.Success("Transaction deleted: %s", *id)
	return nil
}

func listCards(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("card list")
	status := fs.String("status", "", "active, blocked, expired or cancelled")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	usage, total, err := e.app.Cards.ListWithUsage(ctx, *owner, core.CardStatus(*status), 1, 100)
	if err != nil {
		return err
	}

	e.out.Header("Credit cards")
	if total == 0 {
		e.out.Info("No cards")
		return nil
	}
	for _, u := range usage {
		e.out.Info("%s  %s ****%s  invoice %s  used %s of %s",
			u.Card.ID, u.Card.Name, u.Card.LastFourDigits,
			core.FormatAmount(u.Usage.CurrentInvoiceAmount),
			core.FormatAmount(u.Usage.UsedLimit),
			core.FormatAmount(u.Card.Limit))
	}
	return nil
}

func cardUsage(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("card usage")
	id := fs.String("id", "", "Card id")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	u, err := e.app.Cards.Usage(ctx, *owner, *id)
	if err != nil {
		return err
	}
	e.out.Header("Card usage")
	e.out.Row("Invoice", fmt.Sprintf("%s to %s", e.date(&u.Window.InvoiceStartDate), e.date(&u.Window.InvoiceEndDate)))
	e.out.Row("Due date", e.date(&u.Window.DueDate))
	e.out.Row("Invoice amount", core.FormatAmount(u.CurrentInvoiceAmount))
	e.out.Row("Pending", core.FormatAmount(u.PendingAmount))
	e.out.Row("Total debt", core.FormatAmount(u.TotalDebt))
	e.out.Row("Used limit", core.FormatAmount(u.UsedLimit))
	return nil
}

func cardSummary(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("card summary")
	id := fs.String("id", "", "Card id")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	s, err := e.app.Cards.Summary(ctx, *owner, *id)
	if err != nil {
		return err
	}
	e.out.Header(s.Card.Name)
	e.out.Row("Limit", core.FormatAmount(s.Card.Limit))
	e.out.Row("Current debt", core.FormatAmount(s.CurrentDebt))
	e.out.Row("Available", core.FormatAmount(s.AvailableLimit))
	e.out.Row("Next closing", e.date(&s.NextClosingDate))
	e.out.Row("Next due", e.date(&s.NextDueDate))
	if s.AvailableLimit.IsNegative() {
		e.out.Warning("Limit exceeded by %s", core.FormatAmount(s.AvailableLimit.Neg()))
	}
	return nil
}

func budgetProgress(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("budget progress")
	month := fs.Int("month", 0, "Month 1-12 (default current)")
	year := fs.Int("year", 0, "Year (default current)")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	m, y := e.period(*month, *year)
	progress, err := e.app.Budgets.Progress(ctx, *owner, m, y)
	if err != nil {
		return err
	}

	e.out.Header(fmt.Sprintf("Budgets %02d/%d", m, y))
	if len(progress) == 0 {
		e.out.Info("No budgets")
		return nil
	}
	alert := notify.DefaultConfig().BudgetAlertPercent
	if e.app.Config != nil && e.app.Config.BudgetAlertPercent > 0 {
		alert = e.app.Config.BudgetAlertPercent
	}
	for _, p := range progress {
		line := fmt.Sprintf("%-20s %10s of %10s  %6s%%  remaining %s",
			p.Budget.CategoryName,
			core.FormatAmount(p.Spent),
			core.FormatAmount(p.Budget.Amount),
			p.Percentage.StringFixed(1),
			core.FormatAmount(p.Remaining))
		if p.Remaining.IsNegative() || p.Percentage.IntPart() >= int64(alert) {
			e.out.Warning("%s", line)
		} else {
			e.out.Info("%s", line)
		}
	}
	return nil
}

func upcomingRenewals(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("subs upcoming")
	days := fs.Int("days", 7, "Look-ahead in days")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	renewals, err := e.app.Subscriptions.Upcoming(ctx, *owner, *days)
	if err != nil {
		return err
	}
	e.out.Header(fmt.Sprintf("Renewals in the next %d days", *days))
	if len(renewals) == 0 {
		e.out.Info("No renewals")
		return nil
	}
	for _, r := range renewals {
		e.out.Info("%s  %-8s %10s  %s", r.Date, r.Subscription.Frequency,
			core.FormatAmount(r.Subscription.Amount), r.Subscription.Description)
	}
	return nil
}

func cancelSubscription(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("subs cancel")
	id := fs.String("id", "", "Subscription id")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	if err := e.app.Subscriptions.Cancel(ctx, *owner, *id); err != nil {
		return err
	}
	e.out.Success("Subscription cancelled: %s", *id)
	return nil
}

func listNotifications(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("notifications list")
	status := fs.String("status", "", "read or unread")
	limit := fs.Int("limit", 0, "Maximum results (default 50, at most 100)")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	list, err := e.app.Notifications.List(ctx, *owner, core.NotificationStatus(*status), *limit)
	if err != nil {
		return err
	}
	unread, err := e.app.Notifications.UnreadCount(ctx, *owner)
	if err != nil {
		return err
	}

	e.out.Header(fmt.Sprintf("Notifications (%d unread)", unread))
	for _, n := range list {
		if n.Status == core.NotificationUnread {
			e.out.Warning("%s  %s: %s", n.ID, n.Title, n.Message)
		} else {
			e.out.Info("%s  %s: %s", n.ID, n.Title, n.Message)
		}
	}
	return nil
}

func readNotifications(ctx context.Context, e *env, args []string) error {
	fs, owner := flags("notifications read")
	id := fs.String("id", "", "Notification id (default all)")
	if err := parse(fs, args, owner); err != nil {
		return err
	}
	if *id != "" {
		if err := e.app.Notifications.MarkRead(ctx, *owner, *id); err != nil {
			return err
		}
		e.out.Success("Notification marked as read")
		return nil
	}
	n, err := e.app.Notifications.MarkAllRead(ctx, *owner)
	if err != nil {
		return err
	}
	e.out.Success("%d notifications marked as read", n)
	return nil
}

func materialize(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("finctl materialize", flag.ContinueOnError)
	if err := parse(fs, args, nil); err != nil {
		return err
	}
	concurrency := 1
	if e.app.Config != nil {
		concurrency = e.app.Config.WorkerConcurrency
	}
	p := services.NewRecurringProcessor(e.app.Backend.Store, e.app.Transactions, e.app.Deps, concurrency)
	summary, err := p.ProcessDue(ctx, e.now())
	if err != nil {
		return err
	}
	e.out.Success("Processed %d owners", summary.Owners)
	e.out.Row("Created", summary.Created)
	e.out.Row("Skipped", summary.Skipped)
	if summary.Failed > 0 {
		e.out.Warning("%d subscriptions failed, see the log", summary.Failed)
	}
	return nil
}

func generateNotifications(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("finctl notify", flag.ContinueOnError)
	owner := fs.String("owner", "", "Only this owner (default all)")
	if err := parse(fs, args, nil); err != nil {
		return err
	}
	cfg := notify.DefaultConfig()
	if c := e.app.Config; c != nil {
		cfg = notify.Config{
			BudgetAlertPercent:   c.BudgetAlertPercent,
			RenewalLookaheadDays: c.RenewalLookaheadDays,
			Concurrency:          c.WorkerConcurrency,
		}
	}
	g := notify.NewGenerator(e.app.Backend.Store, e.location(), cfg)

	var res notify.Result
	if *owner != "" {
		res = g.Generate(ctx, *owner, e.now())
	} else {
		var err error
		if res, err = g.GenerateAll(ctx, e.now()); err != nil {
			return err
		}
	}
	e.out.Success("%d notifications created", res.Total())
	e.out.Row("Due tomorrow", res.DueDate)
	e.out.Row("Budget alerts", res.Budget)
	e.out.Row("Renewals", res.Renewal)
	if res.Failures > 0 {
		e.out.Warning("%d steps failed, see the log", res.Failures)
	}
	return nil
}

func seedCategories(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("finctl seed", flag.ContinueOnError)
	file := fs.String("file", "", "YAML catalogue (default built-in)")
	if err := parse(fs, args, nil); err != nil {
		return err
	}
	var (
		catalogue seed.Catalogue
		err       error
	)
	if *file != "" {
		raw, rerr := e.readDocument(*file)
		if rerr != nil {
			return rerr
		}
		catalogue, err = seed.Parse(raw)
	} else {
		catalogue, err = seed.Default()
	}
	if err != nil {
		return err
	}
	n, err := seed.Apply(ctx, e.app.Backend.Store.Categories(), catalogue)
	if err != nil {
		return err
	}
	e.out.Success("%d of %d categories created", n, len(catalogue.Categories))
	return nil
}
