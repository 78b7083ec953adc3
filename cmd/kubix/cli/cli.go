// Package cli is a small subcommand dispatcher built on the flag package.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// ErrUsage is returned when arguments do not fit the command.
var ErrUsage = errors.New("usage error")

// PositionalArgs validates the arguments left after flag parsing.
type PositionalArgs func(args []string) error

func MinArgs(n int) PositionalArgs {
	return func(args []string) error {
		if len(args) < n {
			return fmt.Errorf("%w: requires at least %d arg(s), received %d", ErrUsage, n, len(args))
		}
		return nil
	}
}

func MaxArgs(n int) PositionalArgs {
	return func(args []string) error {
		if len(args) > n {
			return fmt.Errorf("%w: accepts at most %d arg(s), received %d", ErrUsage, n, len(args))
		}
		return nil
	}
}

func RangeArgs(min, max int) PositionalArgs {
	return func(args []string) error {
		if err := MinArgs(min)(args); err != nil {
			return err
		}
		return MaxArgs(max)(args)
	}
}

// Command is a node in the command tree. Usage starts with the command
// name and may be followed by an argument synopsis.
type Command struct {
	Usage string
	Short string
	Long  string
	Args  PositionalArgs
	Run   func(ctx context.Context, args []string)

	// Flags is populated by Execute before Run is called.
	Flags *flag.FlagSet
	// Setup, if set, registers flags on the command's flag set.
	Setup func(fs *flag.FlagSet)

	commands []*Command
	parent   *Command
	output   io.Writer
}

func (c *Command) AddCommand(sub *Command) {
	sub.parent = c
	c.commands = append(c.commands, sub)
}

// Name is the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

func (c *Command) path() string {
	if c.parent == nil {
		return c.Name()
	}
	return c.parent.path() + " " + c.Name()
}

func (c *Command) find(name string) *Command {
	for _, sub := range c.commands {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

func (c *Command) out() io.Writer {
	for cmd := c; cmd != nil; cmd = cmd.parent {
		if cmd.output != nil {
			return cmd.output
		}
	}
	return os.Stderr
}

// SetOutput sets where usage is written. Defaults to stderr.
func (c *Command) SetOutput(w io.Writer) {
	c.output = w
}

func (c *Command) flagSet() *flag.FlagSet {
	if c.Flags == nil {
		c.Flags = flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.Flags.SetOutput(io.Discard)
		if c.Setup != nil {
			c.Setup(c.Flags)
		}
	}
	return c.Flags
}

// PrintUsage writes the help text for c.
func (c *Command) PrintUsage() {
	w := c.out()
	if c.Long != "" {
		fmt.Fprintf(w, "%s\n\n", c.Long)
	} else if c.Short != "" {
		fmt.Fprintf(w, "%s\n\n", c.Short)
	}
	usage := c.Usage
	if c.parent != nil {
		usage = c.parent.path() + " " + c.Usage
	}
	if len(c.commands) > 0 {
		fmt.Fprintf(w, "Usage:\n  %s <command>\n\nCommands:\n", usage)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, sub := range c.commands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name(), sub.Short)
		}
		tw.Flush()
	} else {
		fmt.Fprintf(w, "Usage:\n  %s\n", usage)
	}
	fs := c.flagSet()
	var hasFlags bool
	fs.VisitAll(func(*flag.Flag) { hasFlags = true })
	if hasFlags {
		fmt.Fprintf(w, "\nFlags:\n")
		fs.SetOutput(w)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
	}
}

// Execute parses args against root and runs the selected command.
// Flags of a command come before its subcommand name.
func Execute(ctx context.Context, root *Command, args []string) error {
	cmd := root
	for {
		fs := cmd.flagSet()
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				cmd.PrintUsage()
				return nil
			}
			cmd.PrintUsage()
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		args = fs.Args()
		if len(args) == 0 || len(cmd.commands) == 0 {
			break
		}
		if args[0] == "help" {
			target := cmd
			if len(args) > 1 {
				if sub := cmd.find(args[1]); sub != nil {
					target = sub
				}
			}
			target.PrintUsage()
			return nil
		}
		sub := cmd.find(args[0])
		if sub == nil {
			if cmd.Run != nil {
				break
			}
			cmd.PrintUsage()
			return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
		}
		cmd, args = sub, args[1:]
	}

	if cmd.Run == nil {
		cmd.PrintUsage()
		return nil
	}
	if cmd.Args != nil {
		if err := cmd.Args(args); err != nil {
			cmd.PrintUsage()
			return err
		}
	}
	cmd.Run(ctx, args)
	return nil
}
