package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
)

func (a *App) Me(ctx context.Context) error {
	var p *client.Profile
	err := a.call(ctx, func(ctx context.Context) (err error) {
		p, err = a.client.Me(ctx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:        %s\n", p.ID)
	fmt.Fprintf(a.out, "Email:     %s\n", p.Email)
	fmt.Fprintf(a.out, "Verified:  %t\n", p.EmailVerified)
	fmt.Fprintf(a.out, "Password:  %t\n", p.HasPassword)
	fmt.Fprintf(a.out, "Created:   %s\n", p.CreatedAt.Format(time.RFC3339))
	return nil
}

// Audit prints the most recent security events. An optional argument sets
// how many; the server caps it.
func (a *App) Audit(ctx context.Context, args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: audit [n]")
		}
		limit = n
	}

	var entries []client.AuditEntry
	err := a.call(ctx, func(ctx context.Context) (err error) {
		entries, err = a.client.AuditLogs(ctx, limit)
		return err
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tIP\tUSER AGENT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Action, e.IPAddress, e.UserAgent)
	}
	return tw.Flush()
}
