package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/socialhub/internal/models"
)

// Watch keeps one realtime channel open; changes are printed as they
// arrive.
func (a *App) Watch(ctx context.Context, args []string) error {
	event := models.EventAll
	if len(args) > 1 {
		var err error
		if event, err = models.ParseEventType(args[1]); err != nil {
			return err
		}
	}
	if err := a.watcher.Mount(ctx, args[0], event); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Watching %s (%s)\n", args[0], event)
	return nil
}

func (a *App) Unwatch(context.Context, []string) error {
	if _, ok := a.watcher.Active(); !ok {
		fmt.Fprintln(a.out, "Not watching")
		return nil
	}
	a.watcher.Unmount()
	fmt.Fprintln(a.out, "Stopped watching")
	return nil
}
