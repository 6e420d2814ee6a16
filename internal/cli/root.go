package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"vmhealth/internal/health"
	"vmhealth/internal/logging"
	"vmhealth/internal/metrics"
	"vmhealth/internal/promfile"
	"vmhealth/internal/report"
)

const version = "1.0.0"

// ErrNotHealthy signals that the probe ran cleanly but at least one
// metric exceeded the threshold. It maps to exit status 1.
var ErrNotHealthy = errors.New("at least one metric exceeds the threshold")

// UsageError reports malformed or excess CLI arguments. It maps to
// exit status 2 with the usage text on stderr.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// Deps holds the collaborators the command runs against. A nil Sampler
// means the real /proc-backed sampler.
type Deps struct {
	Sampler metrics.Source
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(deps Deps) *cobra.Command {
	var opts Options

	root := &cobra.Command{
		Use:     "vmhealth",
		Short:   "One-shot VM health probe",
		Long:    "vmhealth samples host CPU, memory, and disk utilization once,\ncompares each against a fixed 60.0% threshold, and reports a\nHEALTHY or NOT HEALTHY verdict.",
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &UsageError{Err: fmt.Errorf("unexpected argument %q", args[0])}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.validate()
			if err != nil {
				return err
			}

			log := logging.NewLogger(cmd.ErrOrStderr(), opts.Debug)
			defer log.Sync()

			sampler := deps.Sampler
			if sampler == nil {
				sampler = metrics.NewSampler(log)
			}

			sample, err := sampler.Sample(cmd.Context())
			if err != nil {
				return err
			}

			verdict := health.Evaluate(sample, health.DefaultThreshold)

			reporter := &report.Reporter{
				Out:     cmd.OutOrStdout(),
				Explain: opts.Explain,
				Format:  format,
			}
			if err := reporter.Write(sample, verdict); err != nil {
				return err
			}

			if opts.Textfile != "" {
				if err := promfile.Write(opts.Textfile, sample, verdict); err != nil {
					return fmt.Errorf("failed to write textfile output: %w", err)
				}
			}

			if verdict.Overall == health.NotHealthy {
				return ErrNotHealthy
			}
			return nil
		},
	}

	root.Flags().BoolVar(&opts.Explain, "explain", false, "Print the threshold, each metric, and reasons when unhealthy")
	root.Flags().StringVar(&opts.Output, "output", "text", "Output format: text, json, or yaml")
	root.Flags().StringVar(&opts.Textfile, "textfile", "", "Also write Prometheus textfile-collector output to this path")
	root.Flags().BoolVar(&opts.Debug, "debug", false, "Enable debug diagnostics on stderr")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	return root
}

// Execute runs the probe and maps the outcome to the process exit
// code: 0 healthy, 1 not healthy, 2 usage error or measurement failure.
func Execute(ctx context.Context, deps Deps, args []string) int {
	root := NewRootCmd(deps)
	root.SetArgs(args)
	if deps.Stdout != nil {
		root.SetOut(deps.Stdout)
	}
	if deps.Stderr != nil {
		root.SetErr(deps.Stderr)
	}

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrNotHealthy) {
		return 1
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", usageErr.Err)
		fmt.Fprint(root.ErrOrStderr(), root.UsageString())
		return 2
	}

	fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	return 2
}
