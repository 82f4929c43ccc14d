package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/calvinalkan/salesdash/internal/app"
	"github.com/calvinalkan/salesdash/internal/library"
)

const (
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

// EnvNow fixes the clock to an RFC 3339 time. Used for reproducible runs.
const EnvNow = "SALESDASH_NOW"

var (
	errFlagRequiresArg    = errors.New("flag requires an argument")
	errUnknownFlag        = errors.New("unknown flag")
	errUnknownCommand     = errors.New("unknown command")
	errSubcommandRequired = errors.New("subcommand required")
	errUnknownSubcommand  = errors.New("unknown subcommand")
	errArgRequired        = errors.New("missing argument")
	errInvalidNow         = errors.New("invalid " + EnvNow)
)

// Run is the main entry point. Returns exit code.
// sigCh may be nil; when it delivers, the running command's context is
// cancelled.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	if len(args) < 2 {
		printUsage(out, nil)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, nil)

		return 1
	}

	if len(flags.remaining) == 0 {
		printUsage(out, nil)

		return 0
	}

	if flags.hasDataDirOverride && flags.dataDir == "" {
		fprintln(errOut, "error:", app.ErrDataDirEmpty)
		printUsage(errOut, nil)

		return 1
	}

	cfg, err := app.LoadConfig(app.LoadConfigInput{
		WorkDirOverride: flags.workDir,
		ConfigPath:      flags.configPath,
		DataDirOverride: flags.dataDir,
		BackendOverride: flags.backend,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	clock, err := clockFromEnv(env)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	rt := &runtime{
		cfg:   cfg,
		in:    in,
		clock: clock,
		log:   app.NewLogger(errOut, flags.verbose),
	}

	defer rt.close()

	commands := allCommands(rt)

	name := flags.remaining[0]
	if name == "-h" || name == helpFlag || name == "help" {
		printUsage(out, commands)

		return 0
	}

	var cmd *Command

	for _, c := range commands {
		if c.Name() == name {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", errUnknownCommand, name))
		printUsage(errOut, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(out, errOut)
	rt.io = o

	code := cmd.Run(ctx, o, flags.remaining[1:])
	if code != 0 {
		return code
	}

	return o.Finish()
}

func allCommands(rt *runtime) []*Command {
	return []*Command{
		LoadCmd(rt),
		EntryCmd(rt),
		DemoCmd(rt),
		ResetCmd(rt),
		FilterCmd(rt),
		TableCmd(rt),
		KPICmd(rt),
		ChartCmd(rt),
		DashboardCmd(rt),
		ForecastCmd(rt),
		ExportCmd(rt),
		TemplateCmd(rt),
		LibraryCmd(rt),
		LayoutCmd(rt),
		HoursCmd(rt),
		UsersCmd(rt),
		PrintConfigCmd(&rt.cfg),
	}
}

// runtime carries what every command needs. The session is opened on
// first use so help and print-config never touch the data directory.
type runtime struct {
	cfg     app.Config
	in      io.Reader
	clock   library.Clock
	log     *slog.Logger
	io      *IO
	session *app.Session
}

func (rt *runtime) open(ctx context.Context) (*app.Session, error) {
	if rt.session != nil {
		return rt.session, nil
	}

	s, err := app.Open(ctx, rt.cfg, app.Options{Logger: rt.log, Clock: rt.clock})
	if err != nil {
		return nil, err
	}

	for _, w := range s.Warnings {
		rt.io.Warn(w, "reload the data or run reset")
	}

	rt.session = s

	return s, nil
}

func (rt *runtime) close() {
	if rt.session != nil {
		_ = rt.session.Close()
	}
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func clockFromEnv(env map[string]string) (library.Clock, error) {
	v := env[EnvNow]
	if v == "" {
		return library.SystemClock{}, nil
	}

	now, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidNow, v)
	}

	return fixedClock{now: now}, nil
}

type globalFlags struct {
	workDir            string
	configPath         string
	dataDir            string
	hasDataDirOverride bool
	backend            string
	verbose            bool
	remaining          []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	if v, n, ok, err := valueFlag(args, idx, "-C", "--cwd"); ok {
		flags.workDir = v

		return n, err
	}

	if v, n, ok, err := valueFlag(args, idx, "-c", "--config"); ok {
		flags.configPath = v

		return n, err
	}

	if v, n, ok, err := valueFlag(args, idx, "", "--data-dir"); ok {
		flags.dataDir = v
		flags.hasDataDirOverride = true

		return n, err
	}

	if v, n, ok, err := valueFlag(args, idx, "", "--backend"); ok {
		flags.backend = v

		return n, err
	}

	if arg == "-v" || arg == "--verbose" {
		flags.verbose = true

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", errUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

// valueFlag matches "-s v", "-sv", "--long v", and "--long=v".
func valueFlag(args []string, idx int, short, long string) (string, int, bool, error) {
	arg := args[idx]

	if arg == long || (short != "" && arg == short) {
		if idx+1 >= len(args) {
			return "", consumedNone, true, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		return args[idx+1], consumedTwo, true, nil
	}

	if after, ok := strings.CutPrefix(arg, long+"="); ok {
		return after, consumedOne, true, nil
	}

	if short != "" && len(arg) > len(short) && !strings.HasPrefix(arg, "--") {
		if after, ok := strings.CutPrefix(arg, short); ok {
			return after, consumedOne, true, nil
		}
	}

	return "", consumedNone, false, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, `salesdash - hourly retail sales dashboard

Usage: salesdash [options] <command> [args]

Options:
  -C, --cwd <dir>        Run as if started in <dir>
  -c, --config <file>    Use specified config file
      --data-dir <dir>   Override the data directory
      --backend <name>   Storage backend: dir or sqlite
  -v, --verbose          Log diagnostics to stderr
  -h, --help             Show help

Commands:`)

	if commands == nil {
		commands = allCommands(&runtime{})
	}

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}
}
