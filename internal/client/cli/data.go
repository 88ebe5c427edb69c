package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/hooks"
	"github.com/dmitrijs2005/socialhub/internal/records"
)

func (a *App) userID() string {
	return a.session.State().UserID()
}

func (a *App) Accounts(ctx context.Context, _ []string) error {
	rows, err := a.records.GetConnectedAccounts(ctx, a.userID())
	if err != nil {
		return err
	}
	a.printRecords(rows)
	return nil
}

func (a *App) Posts(ctx context.Context, args []string) error {
	limit := 0
	if len(args) > 0 {
		if _, err := fmt.Sscan(args[0], &limit); err != nil {
			return fmt.Errorf("bad count %q", args[0])
		}
	}
	rows, err := a.records.GetPosts(ctx, a.userID(), limit)
	if err != nil {
		return err
	}
	a.printRecords(rows)
	return nil
}

// Schedule creates a scheduled post owned by the current user.
func (a *App) Schedule(ctx context.Context, args []string) error {
	post, err := parseFields(args)
	if err != nil {
		return err
	}
	if _, ok := post[common.FieldUserID]; !ok {
		post[common.FieldUserID] = a.userID()
	}
	rec, err := a.records.SchedulePost(ctx, post)
	if err != nil {
		return err
	}
	a.printJSON(rec)
	return nil
}

func (a *App) Analytics(ctx context.Context, _ []string) error {
	rows, err := a.records.GetAnalytics(ctx, a.userID())
	if err != nil {
		return err
	}
	a.printRecords(rows)
	return nil
}

func (a *App) Templates(ctx context.Context, _ []string) error {
	rows, err := a.records.GetContentTemplates(ctx, a.userID())
	if err != nil {
		return err
	}
	a.printRecords(rows)
	return nil
}

func (a *App) Create(ctx context.Context, args []string) error {
	fields, err := parseFields(args[1:])
	if err != nil {
		return err
	}
	rec, err := a.records.Create(ctx, args[0], fields)
	if err != nil {
		return err
	}
	a.printJSON(rec)
	return nil
}

// query returns the cached query hook of collection.
func (a *App) query(collection string) *hooks.Query {
	a.mu.Lock()
	defer a.mu.Unlock()
	q, ok := a.queries[collection]
	if !ok {
		q = hooks.NewQuery(a.records, collection, hooks.WithLogger(a.logger))
		a.queries[collection] = q
	}
	return q
}

// List reads through the collection's query hook: repeating the same
// query shows the cached result, refetch reads again.
func (a *App) List(ctx context.Context, args []string) error {
	if err := records.ValidateCollection(args[0]); err != nil {
		return err
	}
	q, err := parseQuery(args[1:])
	if err != nil {
		return err
	}
	hook := a.query(args[0])
	if !hook.SetDeps(ctx, q, q) {
		fmt.Fprintln(a.out, "(cached)")
	}
	return a.showQuery(hook)
}

func (a *App) Refetch(ctx context.Context, args []string) error {
	if err := records.ValidateCollection(args[0]); err != nil {
		return err
	}
	hook := a.query(args[0])
	hook.Refetch(ctx)
	return a.showQuery(hook)
}

func (a *App) showQuery(hook *hooks.Query) error {
	hook.Wait()
	st := hook.State()
	if st.Err != nil {
		return st.Err
	}
	a.printRecords(st.Data)
	return nil
}

func (a *App) Get(ctx context.Context, args []string) error {
	rec, err := a.records.GetByID(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	a.printJSON(rec)
	return nil
}

func (a *App) Update(ctx context.Context, args []string) error {
	fields, err := parseFields(args[2:])
	if err != nil {
		return err
	}
	rec, err := a.records.Update(ctx, args[0], args[1], fields)
	if err != nil {
		return err
	}
	a.printJSON(rec)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if err := a.records.Delete(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}
