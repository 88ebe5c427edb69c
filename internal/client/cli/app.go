package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/client/config"
	"github.com/dmitrijs2005/socialhub/internal/hooks"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/records"
	"github.com/dmitrijs2005/socialhub/internal/remote"
	"github.com/dmitrijs2005/socialhub/internal/remote/grpcclient"
	"github.com/dmitrijs2005/socialhub/internal/remote/memory"
	"github.com/dmitrijs2005/socialhub/internal/session"
)

type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
	ModeMemory  Mode = "memory"
)

// pinger is implemented by remote clients that can probe the backend.
type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	client  remote.Client
	records *records.Service
	session *session.Controller
	watcher *hooks.Watcher
	reader  *bufio.Reader
	out     io.Writer

	mu      sync.Mutex
	mode    Mode
	queries map[string]*hooks.Query
}

// newRemote picks the remote store implementation for c.Mode.
func newRemote(c *config.Config, logger logging.Logger) (remote.Client, error) {
	if c.Mode == config.ModeMemory {
		return memory.New(memory.WithPublicURL(c.StoragePublicURL)), nil
	}
	return grpcclient.New(c.ServerEndpointAddr,
		grpcclient.WithPublicURL(c.StoragePublicURL),
		grpcclient.WithLogger(logger),
	)
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, c.LogFormat, c.LogLevel)

	client, err := newRemote(c, logger)
	if err != nil {
		return nil, err
	}

	a := newApp(client, logger, os.Stdin, os.Stdout)
	a.config = c
	if c.Mode == config.ModeMemory {
		a.mode = ModeMemory
	}
	return a, nil
}

func newApp(client remote.Client, logger logging.Logger, in io.Reader, out io.Writer) *App {
	a := &App{
		config:  &config.Config{},
		logger:  logger,
		client:  client,
		reader:  bufio.NewReader(in),
		out:     &lockedWriter{w: out},
		queries: make(map[string]*hooks.Query),
	}
	a.records = records.NewService(client, logger)
	a.session = session.New(client.Auth(), a.records, logger)
	a.watcher = hooks.NewWatcher(client.Realtime(), a.printEvent, logger)
	return a
}

// Run resolves the session, then serves the REPL until the input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		a.close()
	}()

	if err := a.session.Start(ctx); err != nil {
		a.logger.Warn(ctx, "could not resolve session", "error", err)
	}

	if p, ok := a.client.(pinger); ok && a.config.OnlineCheckInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.StartOnlineStatusWatcher(ctx, p, a.config.OnlineCheckInterval)
		}()
	}

	fmt.Fprintln(a.out, "Welcome to socialhub CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) close() {
	a.watcher.Unmount()
	a.mu.Lock()
	for _, q := range a.queries {
		q.Close()
	}
	a.mu.Unlock()
	a.session.Close()
	if err := a.client.Close(); err != nil {
		a.logger.Warn(context.Background(), "close remote client", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State().Authenticated()
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) getStatus() string {
	s := ""
	if st := a.session.State(); st.User != nil {
		s = st.User.Email + " "
	}
	a.mu.Lock()
	s += string(a.mode)
	a.mu.Unlock()
	if s != "" {
		s = fmt.Sprintf(" (%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the backend every interval and flips the
// mode shown in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, p pinger, interval time.Duration) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			a.setMode(ModeOffline)
		} else {
			a.setMode(ModeOnline)
		}
	}
	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(a.out, v)
		return
	}
	fmt.Fprintln(a.out, string(b))
}

func (a *App) printRecords(rows []models.Record) {
	for _, r := range rows {
		a.printJSON(r)
	}
	fmt.Fprintf(a.out, "(%d rows)\n", len(rows))
}

func (a *App) printEvent(ev models.ChangeEvent) {
	id := ev.New.ID()
	if id == "" {
		id = ev.Old.ID()
	}
	fmt.Fprintf(a.out, "[%s] %s %s\n", ev.Collection, ev.Type, id)
}

// lockedWriter serializes writes from the REPL and realtime callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (a *App) commands() []command {
	return []command{
		{name: "signup", usage: "signup", run: a.SignUp},
		{name: "login", usage: "login", run: a.Login},
		{name: "logout", usage: "logout", auth: true, run: a.Logout},
		{name: "reset", usage: "reset [email]", run: a.Reset},
		{name: "whoami", usage: "whoami", run: a.WhoAmI},
		{name: "profile", usage: "profile [reload]", auth: true, run: a.Profile},

		{name: "accounts", usage: "accounts", auth: true, run: a.Accounts},
		{name: "posts", usage: "posts [n]", auth: true, run: a.Posts},
		{name: "schedule", usage: "schedule key=value...", auth: true, minArgs: 1, run: a.Schedule},
		{name: "analytics", usage: "analytics", auth: true, run: a.Analytics},
		{name: "templates", usage: "templates", auth: true, run: a.Templates},

		{name: "create", usage: "create <collection> key=value...", auth: true, minArgs: 1, run: a.Create},
		{name: "list", usage: "list <collection> [col:op:value...] [order=col[:asc]] [limit=n]", auth: true, minArgs: 1, run: a.List},
		{name: "refetch", usage: "refetch <collection>", auth: true, minArgs: 1, run: a.Refetch},
		{name: "get", usage: "get <collection> <id>", auth: true, minArgs: 2, run: a.Get},
		{name: "update", usage: "update <collection> <id> key=value...", auth: true, minArgs: 3, run: a.Update},
		{name: "delete", usage: "delete <collection> <id>", auth: true, minArgs: 2, run: a.Delete},

		{name: "upload", usage: "upload <bucket> <path> <file> [upsert]", auth: true, minArgs: 3, run: a.Upload},
		{name: "url", usage: "url <bucket> <path>", minArgs: 2, run: a.URL},
		{name: "rmfile", usage: "rmfile <bucket> <path>...", auth: true, minArgs: 2, run: a.RemoveFiles},
		{name: "files", usage: "files <bucket> [folder]", auth: true, minArgs: 1, run: a.Files},

		{name: "watch", usage: "watch <collection> [insert|update|delete|all]", auth: true, minArgs: 1, run: a.Watch},
		{name: "unwatch", usage: "unwatch", run: a.Unwatch},
	}
}
