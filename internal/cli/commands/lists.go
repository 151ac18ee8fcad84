package commands

import (
	"SupplyRun/internal/cli/bootstrap"
	"SupplyRun/internal/cli/lists"
	"SupplyRun/internal/cli/repo"
	reposqlite "SupplyRun/internal/cli/repo/sqlite"
	"SupplyRun/internal/cli/session"
	"SupplyRun/internal/config"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// firstSnapshotWait bounds how long lists waits for the live feed.
var firstSnapshotWait = 10 * time.Second

type listsCmd struct{}

func (listsCmd) Name() string        { return "lists" }
func (listsCmd) Description() string { return "Show your lists, newest first" }
func (listsCmd) Usage() string       { return "lists" }

func (listsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, cleanup := openApp(ctx, cfg)
	defer cleanup()

	id := app.Session.Current()
	if id == nil {
		return errNotSignedIn
	}
	cache := openCache(app, id.UID)
	if cache != nil {
		defer cache.Close()
	}

	sub, err := app.Lists.Observe(ctx, *id, lists.DefaultScope)
	if err != nil {
		return err
	}
	defer sub.Close()

	recs, err := firstSnapshot(ctx, sub)
	if err != nil {
		if !errors.Is(err, session.ErrNetworkUnavailable) {
			return err
		}
		return printCached(ctx, cache, err)
	}
	printRecords(Out, recs)
	if cache != nil {
		if err := cache.Save(ctx, lists.DefaultScope, recs, time.Now()); err != nil {
			app.Logger.Warnw("lists: cache not updated", "error", err)
		}
	}
	return nil
}

// firstSnapshot waits for the first delivery of sub. A feed that starts
// reconnecting or does not answer in time counts as unreachable.
func firstSnapshot(ctx context.Context, sub *lists.Subscription) ([]lists.Record, error) {
	timer := time.NewTimer(firstSnapshotWait)
	defer timer.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case recs, ok := <-sub.Updates():
			if !ok {
				if err := sub.Err(); err != nil {
					return nil, err
				}
				return nil, errors.New("subscription closed")
			}
			return recs, nil
		case <-poll.C:
			if sub.State() == lists.Reconnecting {
				return nil, session.ErrNetworkUnavailable
			}
		case <-timer.C:
			return nil, session.ErrNetworkUnavailable
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func printCached(ctx context.Context, cache repo.SnapshotStore, cause error) error {
	if cache == nil {
		return cause
	}
	recs, savedAt, err := cache.Load(ctx, lists.DefaultScope)
	if errors.Is(err, reposqlite.ErrNoSnapshot) {
		return fmt.Errorf("%w and no cached lists", cause)
	}
	if err != nil {
		return err
	}
	printCachedHeader(Out, savedAt)
	printRecords(Out, recs)
	return nil
}

func openCache(app *bootstrap.App, uid string) repo.SnapshotStore {
	cache, err := app.OpenCache(uid)
	if err != nil {
		app.Logger.Warnw("snapshot cache unavailable", "error", err)
		return nil
	}
	return cache
}

type listAddCmd struct{}

func (listAddCmd) Name() string        { return "list-add" }
func (listAddCmd) Description() string { return "Create a list" }
func (listAddCmd) Usage() string       { return "list-add <title...>" }

func (listAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	app, cleanup := openApp(ctx, cfg)
	defer cleanup()

	id := app.Session.Current()
	if id == nil {
		return errNotSignedIn
	}
	docID, err := app.Lists.Create(ctx, *id, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "List created: %s\n", docID)
	return nil
}

type watchCmd struct{}

func (watchCmd) Name() string        { return "watch" }
func (watchCmd) Description() string { return "Follow your lists live until interrupted" }
func (watchCmd) Usage() string       { return "watch" }

func (watchCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, cleanup := openApp(ctx, cfg)
	defer cleanup()

	id := app.Session.Current()
	if id == nil {
		return errNotSignedIn
	}
	sub, err := app.Lists.Observe(ctx, *id, lists.DefaultScope)
	if err != nil {
		return err
	}
	defer sub.Close()

	poll := time.NewTicker(250 * time.Millisecond)
	defer poll.Stop()
	shown := lists.Connecting
	for {
		select {
		case <-ctx.Done():
			return nil
		case recs, ok := <-sub.Updates():
			if !ok {
				err := sub.Err()
				if errors.Is(err, lists.ErrSessionEnded) || errors.Is(err, lists.ErrUnauthenticated) {
					fmt.Fprintln(Out, "Session ended, stopping")
					return nil
				}
				return err
			}
			fmt.Fprintf(Out, "--- %s ---\n", time.Now().Format(time.TimeOnly))
			printRecords(Out, recs)
		case <-poll.C:
			if st := sub.State(); st != shown {
				shown = st
				if st != lists.Closed {
					fmt.Fprintf(Out, "[%s]\n", st)
				}
			}
		}
	}
}

func init() {
	RegisterCmd(listsCmd{})
	RegisterCmd(listAddCmd{})
	RegisterCmd(watchCmd{})
}
