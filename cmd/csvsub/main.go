// Package main provides the CLI entry point for csvsub.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/csvsub/runtime/internal/cli"
	"github.com/csvsub/runtime/internal/config"
	"github.com/csvsub/runtime/internal/engine"
	"github.com/csvsub/runtime/internal/errhandling"
	"github.com/csvsub/runtime/internal/logger"
	"github.com/csvsub/runtime/internal/matrix"
	"github.com/csvsub/runtime/internal/registry"
	"github.com/csvsub/runtime/internal/sandbox"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitUsageError   = 1
	ExitParseError   = 2
	ExitRuntimeError = 3
)

var (
	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// app holds the flags and streams of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// Global flags
	verbose    bool
	quiet      bool
	logFormat  string
	envFiles   []string
	lenient    bool
	converters string

	// Run command flags
	keepHeader bool
	delimiter  string
	sheet      string
	encoding   string
	output     string

	settings *config.Settings
	exitCode int
}

// execute runs the command line args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		return ExitUsageError
	}
	return a.exitCode
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "csvsub",
		Short: "csvsub - filter and convert delimited files",
		Long: `csvsub selects rows of a CSV (or .xlsx) file by column values, rewrites
columns with converters and saves the result as a new CSV file.

Columns are addressed by letters (A, B, ..., Z, AA, ...) or by 0-based index.

Examples:
  # Rows whose column A is Jack
  csvsub run people.csv A=Jack

  # Rows with A=Jack, plus rows with B=F, keeping the header line
  csvsub run -k people.csv A=Jack OR B=F

  # Increment column C of every row
  csvsub run data.csv "C::x: x + 1"

  # Run a job file
  csvsub apply job.yaml`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: json or human (default from CSVSUB_LOG_FORMAT)")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "Load environment defaults from these files")
	root.PersistentFlags().BoolVar(&a.lenient, "lenient", false, "Evaluate unknown names in expressions as empty instead of failing")
	root.PersistentFlags().StringVar(&a.converters, "converters", "", "Job-formatted file whose converters are registered")

	root.AddCommand(a.runCmd(), a.applyCmd(), a.validateCmd(), a.addressCmd(), a.convertersCmd(), a.versionCmd())
	return root
}

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <source> <token>...",
		Short: "Filter and convert a source file",
		Long: `Filter and convert a source file and save the result.

Tokens:
  column=value         keep rows whose column equals value (tokens are ANDed)
  OR                   start a new group; groups are combined without dedup
  column::converter    convert column with a registered converter or an
                       inline expression such as "x: x + 1"

Without filter tokens every row is exported. The result is written to
--output, or to "<YYYY-MM-DD HH-MM-SS>.csv" next to the source.

Exit codes:
  0 - Result saved, or nothing to export
  1 - Invalid tokens, columns or expressions
  2 - Invalid converter definitions file
  3 - Runtime errors (unreadable source, unwritable output, conversion failure)`,
		Args: cobra.MinimumNArgs(1),
		Run:  a.runSource,
	}
	cmd.Flags().BoolVarP(&a.keepHeader, "keep-header", "k", false, "Treat the first row as a header and write it back unchanged")
	cmd.Flags().StringVar(&a.delimiter, "delimiter", "", `Field delimiter, a single character or "tab" (default ",")`)
	cmd.Flags().StringVar(&a.sheet, "sheet", "", "Worksheet of .xlsx sources (default first sheet)")
	cmd.Flags().StringVar(&a.encoding, "encoding", "", "Source and output encoding (default utf-8-sig)")
	cmd.Flags().StringVarP(&a.output, "output", "o", "", "Output file")
	return cmd
}

func (a *app) applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <job-file>",
		Short: "Run a job file",
		Long: `Run the filters and converters described in a job file (YAML or JSON).

Exit codes:
  0 - Result saved, or nothing to export
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors`,
		Args: cobra.ExactArgs(1),
		Run:  a.runJob,
	}
	cmd.Flags().StringVarP(&a.output, "output", "o", "", "Output file (overrides the job's output)")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <job-file>",
		Short: "Validate a job file",
		Long: `Validate a job file against the schema and compile its converters.

Exit codes:
  0 - Job is valid
  1 - Validation errors (schema violations, bad converters)
  2 - Parse errors (invalid JSON/YAML syntax)`,
		Args: cobra.ExactArgs(1),
		Run:  a.runValidate,
	}
}

func (a *app) addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address <label>...",
		Short: "Print the column numbers of letter addresses",
		Args:  cobra.MinimumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if cli.PrintAddresses(a.stdout, a.stderr, args) > 0 {
				a.exitCode = ExitUsageError
			}
		},
	}
}

func (a *app) convertersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "converters",
		Short: "List registered converters",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			reg, code := a.registry(a.lenient, nil)
			if code != ExitSuccess {
				a.exitCode = code
				return
			}
			cli.PrintNames(a.stdout, reg.Names())
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "Version: %s\n", version)
			fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "Build Date: %s\n", buildDate)
		},
	}
}

// setup loads environment defaults and configures the logger.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	settings, err := config.LoadSettings(a.envFiles...)
	if err != nil {
		return err
	}
	a.settings = settings

	level := logger.ParseLevel(settings.LogLevel, slog.LevelWarn)
	if a.verbose {
		level = slog.LevelDebug
	} else if a.quiet {
		level = slog.LevelError
	}
	format := settings.LogFormat
	if a.logFormat != "" {
		format = a.logFormat
	}
	logger.SetOutput(a.stderr, level, logger.ParseFormat(format))

	if a.converters == "" {
		a.converters = settings.Converters
	}
	return nil
}

func (a *app) runSource(_ *cobra.Command, args []string) {
	source := args[0]

	plan, err := cli.ParseTokens(args[1:])
	if err != nil {
		cli.PrintError(a.stderr, err, a.verbose)
		a.exitCode = ExitUsageError
		return
	}

	opts, err := a.readOptions()
	if err != nil {
		cli.PrintError(a.stderr, err, a.verbose)
		a.exitCode = ExitUsageError
		return
	}

	reg, code := a.registry(a.lenient || a.settings.Lenient, nil)
	if code != ExitSuccess {
		a.exitCode = code
		return
	}

	eng := engine.New(source, engine.WithRegistry(reg), engine.WithReadOptions(opts))
	for _, group := range plan.Stages {
		if _, err := eng.SubGroup(group); err != nil {
			a.fail(err)
			return
		}
	}
	for _, d := range plan.Convert {
		if err := eng.Convert(d.Column, d.Converter); err != nil {
			a.fail(err)
			return
		}
	}
	a.write(eng, a.output)
}

func (a *app) runJob(_ *cobra.Command, args []string) {
	jobPath := args[0]

	job, _, code := a.loadJob(jobPath)
	if code != ExitSuccess {
		a.exitCode = code
		return
	}

	reg, code := a.registry(a.lenient || a.settings.Lenient || job.Lenient, job.Converters)
	if code != ExitSuccess {
		a.exitCode = code
		return
	}

	opts := job.ReadOptions()
	if opts.Encoding == "" {
		opts.Encoding = a.settings.Encoding
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = a.settings.DelimiterRune()
	}

	eng := engine.New(job.Source, engine.WithRegistry(reg), engine.WithReadOptions(opts))
	for _, stage := range job.Stages {
		if _, err := eng.Sub(stage...); err != nil {
			a.fail(err)
			return
		}
	}
	if err := eng.ConvertAll(job.Convert); err != nil {
		a.fail(err)
		return
	}

	dest := job.Output
	if a.output != "" {
		dest = a.output
	}
	a.write(eng, dest)
}

func (a *app) runValidate(_ *cobra.Command, args []string) {
	jobPath := args[0]

	if !a.quiet {
		fmt.Fprintf(a.stdout, "Validating job: %s\n", jobPath)
	}

	job, format, code := a.loadJob(jobPath)
	if code != ExitSuccess {
		a.exitCode = code
		return
	}

	// Compile every converter so expression errors surface before a run.
	reg, code := a.registry(a.lenient || a.settings.Lenient || job.Lenient, job.Converters)
	if code != ExitSuccess {
		a.exitCode = code
		return
	}
	for _, col := range job.SortedColumns() {
		if _, err := reg.Resolve(job.Convert[col]); err != nil {
			cli.PrintError(a.stderr, fmt.Errorf("convert %s: %w", col, err), a.verbose)
			a.exitCode = ExitUsageError
			return
		}
	}

	if !a.quiet {
		fmt.Fprintf(a.stdout, "✓ Job is valid (format: %s)\n", format)
		if a.verbose {
			cli.PrintJobSummary(a.stdout, job)
		}
	}
}

// loadJob parses, validates and converts a job file, printing any errors.
// It returns the job, its format and an exit code.
func (a *app) loadJob(path string) (*config.Job, string, int) {
	result := config.ParseFile(path)
	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(a.stderr, result.ParseErrors, a.verbose)
		return nil, "", ExitParseError
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(a.stderr, result.ValidationErrors, a.verbose, a.quiet)
		return nil, "", ExitUsageError
	}

	job, err := config.ToJob(result.Data, path)
	if err != nil {
		cli.PrintError(a.stderr, fmt.Errorf("%s: %w", path, err), a.verbose)
		return nil, "", ExitUsageError
	}
	return job, result.Format, ExitSuccess
}

// registry initializes the default registry with the built-in converters,
// the --converters file and defs.
func (a *app) registry(lenient bool, defs []config.ConverterDef) (*registry.Registry, int) {
	var opts []sandbox.Option
	if lenient {
		opts = append(opts, sandbox.Lenient())
	}
	reg := registry.Init(sandbox.New(opts...))

	if a.converters != "" {
		fileDefs, err := config.LoadConverterDefs(a.converters)
		if err != nil {
			cli.PrintError(a.stderr, err, a.verbose)
			return nil, ExitParseError
		}
		if err := config.RegisterConverters(reg, fileDefs); err != nil {
			cli.PrintError(a.stderr, err, a.verbose)
			return nil, ExitUsageError
		}
	}
	if err := config.RegisterConverters(reg, defs); err != nil {
		cli.PrintError(a.stderr, err, a.verbose)
		return nil, ExitUsageError
	}
	return reg, ExitSuccess
}

// readOptions merges run flags over the environment defaults.
func (a *app) readOptions() (matrix.ReadOptions, error) {
	opts := matrix.ReadOptions{
		Encoding:   a.settings.Encoding,
		Delimiter:  a.settings.DelimiterRune(),
		KeepHeader: a.keepHeader || a.settings.KeepHeader,
		Sheet:      a.sheet,
	}
	if a.encoding != "" {
		opts.Encoding = a.encoding
	}
	if a.delimiter != "" {
		d, err := config.ParseDelimiter(a.delimiter)
		if err != nil {
			return opts, errhandling.New(errhandling.KindInvalidToken, "--delimiter", err)
		}
		opts.Delimiter = d
	}
	return opts, nil
}

func (a *app) write(eng *engine.Engine, dest string) {
	rows, pathOrMessage, err := eng.WriteAll(dest)
	if err != nil {
		a.fail(err)
		return
	}
	cli.PrintResult(a.stdout, rows, pathOrMessage)
}

// fail prints err and picks the exit code from its kind.
func (a *app) fail(err error) {
	cli.PrintError(a.stderr, err, a.verbose)
	if errhandling.IsUsageError(err) {
		a.exitCode = ExitUsageError
		return
	}
	a.exitCode = ExitRuntimeError
}
