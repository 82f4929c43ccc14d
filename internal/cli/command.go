package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "salesdash" in help.
	// Includes the command name and arguments/flags.
	// Examples: "load <file>", "library save [flags]", "table"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error

	subs []*Command
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-34s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "salesdash <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: salesdash", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	err := c.parseAndExec(ctx, o, args)
	if err != nil {
		o.ErrPrintln("error:", err)

		var usageErr *usageError
		if errors.As(err, &usageErr) {
			o.ErrPrintln()
			usageErr.cmd.printHelpTo(o)
		}

		return 1
	}

	return 0
}

func (c *Command) parseAndExec(ctx context.Context, o *IO, args []string) error {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)

			return nil
		}

		return &usageError{cmd: c, err: err}
	}

	return c.Exec(ctx, o, c.Flags.Args())
}

// printHelpTo prints usage to stderr so failed commands keep stdout empty.
func (c *Command) printHelpTo(o *IO) {
	o.ErrPrintln("Usage: salesdash", c.Usage)

	for _, sub := range c.subs {
		o.ErrPrintln(sub.HelpLine())
	}

	if c.Flags != nil && c.Flags.HasFlags() {
		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.ErrPrintln(strings.TrimRight(buf.String(), "\n"))
	}
}

// usageError marks a flag or argument error that should be followed by help.
type usageError struct {
	cmd *Command
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// Group returns a command that dispatches its first argument to one of subs.
// Each sub's Usage starts with the group name followed by the subcommand.
func Group(name, short string, subs ...*Command) *Command {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetInterspersed(false)

	var long strings.Builder

	long.WriteString(short)
	long.WriteString("\n\nSubcommands:\n")

	for _, sub := range subs {
		long.WriteString(sub.HelpLine())
		long.WriteString("\n")
	}

	group := &Command{
		Flags: flags,
		Usage: name + " <subcommand> [args]",
		Short: short,
		Long:  strings.TrimRight(long.String(), "\n"),
		subs:  subs,
	}

	group.Exec = func(ctx context.Context, o *IO, args []string) error {
		if len(args) == 0 {
			return &usageError{cmd: group, err: fmt.Errorf("%w: %s", errSubcommandRequired, name)}
		}

		for _, sub := range subs {
			if sub.subName() == args[0] {
				return sub.parseAndExec(ctx, o, args[1:])
			}
		}

		return &usageError{cmd: group, err: fmt.Errorf("%w: %s %s", errUnknownSubcommand, name, args[0])}
	}

	return group
}

// subName is the second word of Usage.
func (c *Command) subName() string {
	fields := strings.Fields(c.Usage)
	if len(fields) < 2 {
		return ""
	}

	return fields[1]
}
