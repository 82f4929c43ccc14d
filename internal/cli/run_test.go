package cli_test

import (
	"bytes"
	"testing"

	"github.com/calvinalkan/salesdash/internal/cli"
)

func Test_Invalid_Global_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("--invalid-flag", "table")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--invalid-flag")

	// Should show valid global options
	cli.AssertContains(t, stderr, "Options:")
	cli.AssertContains(t, stderr, "--cwd")
	cli.AssertContains(t, stderr, "--data-dir")
}

func Test_Empty_Data_Dir_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("--data-dir=", "table")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "data_dir cannot be empty")
}

func Test_Bare_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	// Call Run directly without test helper (which adds --cwd)
	var stdout, stderr bytes.Buffer

	exitCode := cli.Run(nil, &stdout, &stderr, []string{"salesdash"}, nil, nil)

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stderr.String(), ""; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdout.String(), "salesdash - hourly retail sales dashboard")
	cli.AssertContains(t, stdout.String(), "load <file>")
	cli.AssertContains(t, stdout.String(), "library <subcommand>")
}

func Test_Main_Help_When_Invoked(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		args []string
	}{
		{name: "long flag", args: []string{"--help"}},
		{name: "short flag", args: []string{"-h"}},
		{name: "help command", args: []string{"help"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := cli.NewCLI(t)
			stdout, stderr, exitCode := c.Run(tt.args...)

			if got, want := exitCode, 0; got != want {
				t.Errorf("exitCode=%d, want=%d", got, want)
			}

			if got, want := stderr, ""; got != want {
				t.Errorf("stderr=%q, want=%q", got, want)
			}

			cli.AssertContains(t, stdout, "salesdash - hourly retail sales dashboard")
			cli.AssertContains(t, stdout, "dashboard [--charts dir]")
			cli.AssertContains(t, stdout, "print-config")
		})
	}
}

func Test_Unknown_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate")

	cli.AssertContains(t, stderr, "unknown command: frobnicate")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Invalid_Command_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("chart", "--invalid-flag")

	cli.AssertContains(t, stderr, "error:")
	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "Usage: salesdash chart")
}

func Test_Command_Help_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("filter", "--help")

	cli.AssertContains(t, stdout, "Usage: salesdash filter")
	cli.AssertContains(t, stdout, "Flags:")
	cli.AssertContains(t, stdout, "--min-txn")
}

func Test_Group_Requires_Subcommand_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("library")
	cli.AssertContains(t, stderr, "subcommand required: library")
	cli.AssertContains(t, stderr, "library save")

	stderr = c.MustFail("layout", "explode")
	cli.AssertContains(t, stderr, "unknown subcommand: layout explode")
}

func Test_Invalid_Now_Env_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.Env[cli.EnvNow] = "yesterday"

	stderr := c.MustFail("table")
	cli.AssertContains(t, stderr, "invalid SALESDASH_NOW")
}
