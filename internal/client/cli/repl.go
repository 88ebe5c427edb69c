package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for REPL messages.
var printlnFn = fmt.Println

// command is one REPL verb. Commands with auth set are refused while
// signed out; fewer than minArgs arguments print the usage line.
type command struct {
	name    string
	usage   string
	auth    bool
	minArgs int
	run     func(ctx context.Context, args []string) error
}

// execIface is the surface the REPL needs. *App satisfies it; tests use a
// lightweight stub.
type execIface interface {
	isLoggedIn() bool
	commands() []command
}

// runREPL reads commands from reader until EOF, "exit" or "quit". Errors
// returned by commands are printed and do not end the loop. Commands that
// prompt read from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	cmds := a.commands()
	byName := make(map[string]command, len(cmds))
	for _, c := range cmds {
		byName[c.name] = c
	}

	for {
		printlnFn(fmt.Sprintf("socialhub%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printHelp(cmds, a.isLoggedIn())
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		c, ok := byName[name]
		switch {
		case !ok:
			printlnFn("Unknown command:", name)
		case c.auth && !a.isLoggedIn():
			printlnFn("Please login first")
		case len(args) < c.minArgs:
			printlnFn("Usage:", c.usage)
		default:
			if err := c.run(ctx, args); err != nil {
				printlnFn("Error:", err)
			}
		}
	}
}

func printHelp(cmds []command, loggedIn bool) {
	printlnFn("Available commands:")
	for _, c := range cmds {
		if c.auth && !loggedIn {
			continue
		}
		printlnFn("  " + c.usage)
	}
	printlnFn("  help")
	printlnFn("  exit")
}
