package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/gym-admin/internal/application"
	"github.com/example/gym-admin/internal/client"
)

func dispatch(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	command, rest := args[0], args[1:]
	switch command {
	case "login":
		return cmdLogin(ctx, a, rest, stdout)
	case "logout":
		a.session.Logout(ctx)
		fmt.Fprintln(stdout, "Logged out")
		return nil
	case "whoami":
		return cmdWhoami(ctx, a, stdout)
	case "token":
		return cmdToken(ctx, a, rest, stdout)
	case "members":
		return cmdMembers(ctx, a, rest, stdout)
	case "plans":
		return cmdPlans(ctx, a, rest, stdout)
	case "dashboard":
		return cmdDashboard(ctx, a, stdout)
	case "keepalive":
		return cmdKeepalive(ctx, a, rest, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

// visited returns the names of flags set on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func parseID(command string, args []string) (int, []string, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("%w: %s needs an id", errUsage, command)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("%w: %s: invalid id %q", errUsage, command, args[0])
	}
	return id, args[1:], nil
}

func parseIDs(command string, args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least one id", errUsage, command)
	}
	ids := make([]int, 0, len(args))
	for _, raw := range args {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %s: invalid id %q", errUsage, command, raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func cmdLogin(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	remember := fs.Bool("remember", false, "remember this login")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("%w: login needs -email", errUsage)
	}

	user, err := a.session.Login(ctx, application.LoginParams{Email: *email, Password: *password, RememberMe: *remember})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Logged in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
	return nil
}

func cmdWhoami(ctx context.Context, a *app, stdout io.Writer) error {
	user, err := a.restore(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s <%s> (%s)\n", user.Name, user.Email, user.Role)
	if a.authority.RememberMe(ctx) {
		fmt.Fprintln(stdout, "remembered: yes")
	}
	return nil
}

func cmdToken(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: token needs info, expire or refresh", errUsage)
	}
	switch args[0] {
	case "info":
		info := a.authority.Info(ctx)
		fmt.Fprintf(stdout, "state: %s\n", a.authority.State(ctx))
		fmt.Fprintf(stdout, "has token: %t\n", info.HasToken)
		fmt.Fprintf(stdout, "has refresh token: %t\n", info.HasRefreshToken)
		fmt.Fprintf(stdout, "expired: %t\n", info.IsExpired)
		if info.ExpiresAt != nil {
			fmt.Fprintf(stdout, "expires at: %s\n", info.ExpiresAt.Format(time.RFC3339))
			fmt.Fprintf(stdout, "time until expiry: %s\n", info.TimeUntilExpiry.Round(time.Second))
		}
		return nil
	case "expire":
		if a.authority.Token(ctx) == "" {
			return errNotLoggedIn
		}
		a.authority.SimulateExpiry(ctx)
		fmt.Fprintln(stdout, "Token expiry simulated")
		return nil
	case "refresh":
		if _, err := a.gateway.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Token refreshed")
		return nil
	default:
		return fmt.Errorf("%w: unknown token command %q", errUsage, args[0])
	}
}

type memberFlags struct {
	fs     *flag.FlagSet
	name   *string
	email  *string
	phone  *string
	plan   *string
	start  *string
	expiry *string
	amount *string
	status *string
}

func newMemberFlags(a *app, name string, withStatus bool) *memberFlags {
	fs := newFlagSet(a, name)
	m := &memberFlags{
		fs:     fs,
		name:   fs.String("name", "", "member name"),
		email:  fs.String("email", "", "member email"),
		phone:  fs.String("phone", "", "member phone"),
		plan:   fs.String("plan", "", "plan name"),
		start:  fs.String("start", "", "start date (YYYY-MM-DD)"),
		expiry: fs.String("expiry", "", "expiry date (YYYY-MM-DD)"),
		amount: fs.String("amount", "", "due amount"),
	}
	if withStatus {
		m.status = fs.String("status", "", "status override (Active, Pending, Expired)")
	}
	return m
}

// input returns only the fields given on the command line.
func (m *memberFlags) input() application.MemberInput {
	set := visited(m.fs)
	pick := func(name string, value *string) *string {
		if !set[name] {
			return nil
		}
		v := *value
		return &v
	}
	in := application.MemberInput{
		Name:       pick("name", m.name),
		Email:      pick("email", m.email),
		Phone:      pick("phone", m.phone),
		Plan:       pick("plan", m.plan),
		StartDate:  pick("start", m.start),
		ExpiryDate: pick("expiry", m.expiry),
		Amount:     pick("amount", m.amount),
	}
	if m.status != nil && set["status"] {
		status := application.MemberStatus(*m.status)
		in.Status = &status
	}
	return in
}

func cmdMembers(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: members needs a subcommand", errUsage)
	}
	sub, rest := args[0], args[1:]
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	members := a.client.Members

	switch sub {
	case "list":
		fs := newFlagSet(a, "members list")
		query := fs.String("q", "", "search name, email or phone")
		status := fs.String("status", "", "only this status")
		plan := fs.String("plan", "", "only this plan")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		res, err := members.List(ctx, application.MemberFilter{Search: *query, Status: application.MemberStatus(*status), Plan: *plan})
		if err != nil {
			return err
		}
		return writeMembers(stdout, res.Data.Data)
	case "get":
		id, _, err := parseID("members get", rest)
		if err != nil {
			return err
		}
		res, err := members.Get(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(stdout, res.Data.Data)
	case "add":
		flags := newMemberFlags(a, "members add", false)
		if err := parseFlags(flags.fs, rest); err != nil {
			return err
		}
		if strings.TrimSpace(*flags.name) == "" {
			return fmt.Errorf("%w: members add needs -name", errUsage)
		}
		res, err := members.Create(ctx, flags.input())
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Data.Message)
		return writeJSON(stdout, res.Data.Data)
	case "update":
		id, rest, err := parseID("members update", rest)
		if err != nil {
			return err
		}
		flags := newMemberFlags(a, "members update", true)
		if err := parseFlags(flags.fs, rest); err != nil {
			return err
		}
		res, err := members.Update(ctx, id, flags.input())
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Data.Message)
		return writeJSON(stdout, res.Data.Data)
	case "delete":
		id, _, err := parseID("members delete", rest)
		if err != nil {
			return err
		}
		res, err := members.Delete(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Data.Message)
		return nil
	case "bulk-status":
		fs := newFlagSet(a, "members bulk-status")
		status := fs.String("status", "", "status to apply (Active, Pending, Expired)")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *status == "" {
			return fmt.Errorf("%w: members bulk-status needs -status", errUsage)
		}
		ids, err := parseIDs("members bulk-status", fs.Args())
		if err != nil {
			return err
		}
		value := application.MemberStatus(*status)
		updated, err := members.BulkUpdate(ctx, ids, application.MemberInput{Status: &value})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Updated %d members\n", len(updated))
		return nil
	case "bulk-delete":
		ids, err := parseIDs("members bulk-delete", rest)
		if err != nil {
			return err
		}
		if err := members.BulkDelete(ctx, ids); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted %d members\n", len(ids))
		return nil
	case "reset":
		res, err := members.Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Data.Message)
		return nil
	default:
		return fmt.Errorf("%w: unknown members command %q", errUsage, sub)
	}
}

func writeMembers(w io.Writer, members []application.Member) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPLAN\tEXPIRY\tDUE\tSTATUS")
	for _, m := range members {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Email, m.Plan, m.ExpiryDate, m.DueAmount.StringFixed(2), m.Status)
	}
	return tw.Flush()
}

type planFlags struct {
	fs          *flag.FlagSet
	name        *string
	duration    *int
	price       *string
	tax         *string
	description *string
	status      *string
}

func newPlanFlags(a *app, name string, withStatus bool) *planFlags {
	fs := newFlagSet(a, name)
	p := &planFlags{
		fs:          fs,
		name:        fs.String("name", "", "plan name"),
		duration:    fs.Int("duration", 0, "length in months (1, 3, 6, 12)"),
		price:       fs.String("price", "", "price"),
		tax:         fs.String("tax", "", "tax"),
		description: fs.String("description", "", "description"),
	}
	if withStatus {
		p.status = fs.String("status", "", "Active or Inactive")
	}
	return p
}

func (p *planFlags) input() (application.PlanInput, error) {
	set := visited(p.fs)
	var in application.PlanInput
	if set["name"] {
		in.Name = p.name
	}
	if set["duration"] {
		in.Duration = p.duration
	}
	if set["description"] {
		in.Description = p.description
	}
	for _, field := range []struct {
		name string
		raw  *string
		dst  **decimal.Decimal
	}{
		{"price", p.price, &in.Price},
		{"tax", p.tax, &in.Tax},
	} {
		if !set[field.name] {
			continue
		}
		value, err := decimal.NewFromString(strings.TrimSpace(*field.raw))
		if err != nil {
			return application.PlanInput{}, fmt.Errorf("%w: invalid -%s %q", errUsage, field.name, *field.raw)
		}
		*field.dst = &value
	}
	if p.status != nil && set["status"] {
		status := application.PlanStatus(*p.status)
		in.Status = &status
	}
	return in, nil
}

func cmdPlans(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: plans needs a subcommand", errUsage)
	}
	sub, rest := args[0], args[1:]
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	plans := a.client.Plans

	switch sub {
	case "list":
		res, err := plans.List(ctx)
		if err != nil {
			return err
		}
		return writePlans(stdout, res.Data.Data)
	case "get":
		id, _, err := parseID("plans get", rest)
		if err != nil {
			return err
		}
		res, err := plans.Get(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(stdout, res.Data.Data)
	case "add", "update":
		id := 0
		if sub == "update" {
			var err error
			if id, rest, err = parseID("plans update", rest); err != nil {
				return err
			}
		}
		flags := newPlanFlags(a, "plans "+sub, sub == "update")
		if err := parseFlags(flags.fs, rest); err != nil {
			return err
		}
		input, err := flags.input()
		if err != nil {
			return err
		}
		var res client.Response[application.PricedPlan]
		if sub == "add" {
			res, err = plans.Create(ctx, input)
		} else {
			res, err = plans.Update(ctx, id, input)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Data.Message)
		return writeJSON(stdout, res.Data.Data)
	case "delete":
		id, _, err := parseID("plans delete", rest)
		if err != nil {
			return err
		}
		res, err := plans.Delete(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Data.Message)
		return nil
	case "reset":
		res, err := plans.Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Data.Message)
		return nil
	default:
		return fmt.Errorf("%w: unknown plans command %q", errUsage, sub)
	}
}

func writePlans(w io.Writer, plans []application.PricedPlan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMONTHS\tPRICE\tTAX\tTOTAL\tSTATUS")
	for _, p := range plans {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Duration, p.Price.StringFixed(2), p.Tax.StringFixed(2), p.Total.StringFixed(2), p.Status)
	}
	return tw.Flush()
}

func cmdDashboard(ctx context.Context, a *app, stdout io.Writer) error {
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	res, err := a.client.Dashboard.Stats(ctx)
	if err != nil {
		return err
	}
	stats := res.Data.Data
	fmt.Fprintf(stdout, "members: %d (active %d, pending %d, expired %d)\n", stats.TotalMembers, stats.ActiveMembers, stats.PendingMembers, stats.ExpiredMembers)
	fmt.Fprintf(stdout, "expiring within 7 days: %d\n", stats.ExpiringSoon)
	fmt.Fprintf(stdout, "outstanding dues: %s\n", stats.OutstandingDues.StringFixed(2))
	fmt.Fprintf(stdout, "active plans: %d (average total %s)\n", stats.ActivePlans, stats.AveragePlanCost.StringFixed(2))
	return nil
}

func cmdKeepalive(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet(a, "keepalive")
	once := fs.Bool("once", false, "check once and exit")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.restore(ctx); err != nil {
		return err
	}

	if *once {
		refreshed, err := a.keeper.Check(ctx)
		if err != nil {
			return err
		}
		if refreshed {
			fmt.Fprintln(stdout, "Token refreshed")
		} else {
			fmt.Fprintln(stdout, "Token still fresh")
		}
		return nil
	}

	if err := a.keeper.Start(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Keeping session alive (%s), next check %s\n", a.cfg.Keeper.Schedule, a.keeper.Next().Format(time.RFC3339))
	<-ctx.Done()
	<-a.keeper.Stop().Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
