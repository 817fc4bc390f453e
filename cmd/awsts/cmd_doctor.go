package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/enri3l/aws-ts-sub005/internal/awscli"
	"github.com/enri3l/aws-ts-sub005/internal/config"
	"github.com/enri3l/aws-ts-sub005/internal/doctor"
	"github.com/enri3l/aws-ts-sub005/internal/events"
	"github.com/enri3l/aws-ts-sub005/internal/fsys"
	"github.com/enri3l/aws-ts-sub005/internal/repair"
	"github.com/enri3l/aws-ts-sub005/internal/telemetry"
	"github.com/enri3l/aws-ts-sub005/internal/watch"
)

// doctorOptions holds the doctor command's flag values.
type doctorOptions struct {
	profile     string
	detailed    bool
	interactive bool
	fix         bool
	jsonOut     bool
	dryRun      bool
	watchMode   bool
}

func newDoctorCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts doctorOptions
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose your AWS CLI environment",
		Long: `Run progressive health checks against the local AWS CLI setup.

Checks run in four ordered stages: environment (aws binary, ~/.aws,
AWS_* variables), configuration (config file, profiles, defaults),
authentication (credential resolution, STS identity, token expiry), and
connectivity (DNS, endpoint reachability, proxy settings). A failing
environment stage stops the pipeline; later-stage failures do not.

Use --fix to apply safe automatic repairs, --interactive to be prompted
through riskier ones, and --watch to re-diagnose whenever the AWS config
files change.`,
		Example: `  awsts doctor
  awsts doctor --profile prod --detailed
  awsts doctor --fix
  awsts doctor --interactive --dry-run
  awsts doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if doDoctor(opts, stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.profile, "profile", "", "AWS profile to diagnose (default: \"default\")")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show extra diagnostic details")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", false, "prompt through fixable issues")
	cmd.Flags().BoolVar(&opts.fix, "fix", false, "apply safe repairs automatically")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit the report as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "preview repairs without mutating anything")
	cmd.Flags().BoolVar(&opts.watchMode, "watch", false, "re-run diagnostics when AWS config files change")
	return cmd
}

// doDoctor runs the diagnostic pipeline and optional repairs, then
// renders the report.
func doDoctor(opts doctorOptions, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	storageDir, err := resolveStorageDir()
	if err != nil {
		fmt.Fprintf(stderr, "awsts doctor: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	awsDir, err := resolveAwsDir()
	if err != nil {
		fmt.Fprintf(stderr, "awsts doctor: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	configPath := filepath.Join(awsDir, "config")

	cfg, err := config.Load(fsys.OSFS{}, filepath.Join(storageDir, "awsts.toml"))
	if err != nil {
		fmt.Fprintf(stderr, "awsts doctor: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}

	shutdown, err := telemetry.Init(ctx,
		telemetry.EndpointURL(telemetry.EnvMetricsURL, cfg.Telemetry.MetricsURL),
		telemetry.EndpointURL(telemetry.EnvLogsURL, cfg.Telemetry.LogsURL))
	if err != nil {
		fmt.Fprintf(stderr, "awsts doctor: telemetry disabled: %v\n", err) //nolint:errcheck // best-effort stderr
	} else {
		defer shutdown(context.Background()) //nolint:errcheck // best-effort flush
	}

	var recorder events.Recorder = events.Discard
	if !opts.dryRun {
		fr, err := events.NewFileRecorder(filepath.Join(storageDir, "events.jsonl"), stderr)
		if err != nil {
			fmt.Fprintf(stderr, "awsts doctor: audit log disabled: %v\n", err) //nolint:errcheck // best-effort stderr
		} else {
			recorder = fr
			defer fr.Close() //nolint:errcheck // best-effort close
		}
	}

	cli := awscli.New(awscli.ExecCommandRunner(), cfg.CheckTimeout())
	region := resolveRegion(cfg)

	registry, err := buildRegistry(cli, awsDir, configPath, region, cfg.CheckTimeout())
	if err != nil {
		// Registration errors are programming errors, fatal to the run.
		fmt.Fprintf(stderr, "awsts doctor: %v\n", err) //nolint:errcheck // best-effort stderr
		if g, ok := err.(interface{ Guidance() string }); ok {
			fmt.Fprintf(stderr, "%s\n", g.Guidance()) //nolint:errcheck // best-effort stderr
		}
		return 1
	}

	svcOpts := []doctor.Option{doctor.WithMaxConcurrency(cfg.Doctor.MaxConcurrency)}
	if cfg.Doctor.Progress && !opts.jsonOut {
		svcOpts = append(svcOpts, doctor.WithProgress(newStageProgress(stderr)))
	}
	service := doctor.NewService(registry, svcOpts...)

	dctx := &doctor.Context{
		Profile:     opts.profile,
		Detailed:    opts.detailed,
		Interactive: opts.interactive,
		AutoFix:     opts.fix,
	}

	repairer := repair.NewService(fsys.OSFS{}, storageDir,
		repair.DefaultFixers(repair.FixerDeps{
			FS:         fsys.OSFS{},
			Writer:     cli,
			Login:      cli,
			AwsDir:     awsDir,
			ConfigPath: configPath,
			Region:     cfg.Doctor.DefaultRegion,
			Output:     cfg.Doctor.DefaultOutput,
		}),
		repair.WithRecorder(recorder),
		repair.WithDryRun(opts.dryRun),
		repair.WithPrompter(stdinPrompter(stdout)),
	)

	runOnce := func() int {
		summary := service.RunDiagnostics(ctx, dctx)
		recorder.Record(events.Event{
			Type:    events.DoctorRun,
			Actor:   "doctor",
			Subject: dctx.ProfileName(),
			Message: fmt.Sprintf("%s: %d checks, %d failed", summary.OverallStatus, summary.TotalChecks, summary.FailedChecks),
		})

		var batch *repair.Batch
		if opts.fix || opts.interactive {
			var results []repair.Result
			var err error
			if opts.interactive {
				results, err = repairer.InteractiveRepairs(ctx, dctx, summary.Results)
			} else {
				results, err = repairer.SafeRepairs(ctx, dctx, summary.Results)
			}
			if err != nil {
				fmt.Fprintf(stderr, "awsts doctor: %v\n", err) //nolint:errcheck // best-effort stderr
				return 1
			}
			batch = repair.NewBatch(results)
		}

		if opts.jsonOut {
			if err := writeJSONReport(stdout, summary, batch); err != nil {
				fmt.Fprintf(stderr, "awsts doctor: %v\n", err) //nolint:errcheck // best-effort stderr
				return 1
			}
		} else {
			printReport(stdout, registry, summary, batch, opts.detailed)
		}

		if summary.OverallStatus == doctor.StatusFail {
			return 1
		}
		return 0
	}

	code := runOnce()
	if !opts.watchMode {
		return code
	}

	fmt.Fprintf(stderr, "watching %s for changes (ctrl-c to stop)\n", awsDir) //nolint:errcheck // best-effort stderr
	paths := []string{configPath, filepath.Join(awsDir, "credentials")}
	err = watch.Files(ctx, paths, 0, func() {
		fmt.Fprintln(stdout) //nolint:errcheck // best-effort stdout
		code = runOnce()
	})
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(stderr, "awsts doctor: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	return code
}

// buildRegistry registers the full check set. awsDir and configPath
// locate the AWS configuration; region picks the STS endpoint probed by
// the connectivity stage; timeout bounds the endpoint dial.
func buildRegistry(cli *awscli.CLI, awsDir, configPath, region string, timeout time.Duration) (*doctor.Registry, error) {
	registry := doctor.NewRegistry()
	checks := []doctor.Check{
		// Environment.
		doctor.NewCLICheck(nil, cli.Version),
		doctor.NewHomeDirCheck(fsys.OSFS{}, awsDir),
		doctor.NewEnvVarsCheck(os.Getenv),
		// Configuration.
		doctor.NewConfigFileCheck(fsys.OSFS{}, configPath, cli),
		doctor.NewProfileCheck(cli),
		doctor.NewDefaultsCheck(cli),
		// Authentication.
		doctor.NewCredentialsCheck(cli),
		doctor.NewIdentityCheck(cli),
		doctor.NewTokenExpiryCheck(cli, 0),
		// Connectivity.
		doctor.NewDNSCheck(nil, region),
		doctor.NewEndpointCheck(nil, region, timeout),
		doctor.NewProxyCheck(os.Getenv),
	}
	for _, c := range checks {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// resolveRegion picks the region used for connectivity probes: AWS_REGION
// wins over AWS_DEFAULT_REGION, then the configured default.
func resolveRegion(cfg *config.Settings) string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	if r := os.Getenv("AWS_DEFAULT_REGION"); r != "" {
		return r
	}
	return cfg.Doctor.DefaultRegion
}

// stdinPrompter reads y/N confirmations from standard input.
func stdinPrompter(stdout io.Writer) repair.Prompter {
	scanner := bufio.NewScanner(os.Stdin)
	return repair.ConfirmFunc(func(message string) (bool, error) {
		fmt.Fprintf(stdout, "%s [y/N] ", message) //nolint:errcheck // best-effort stdout
		if !scanner.Scan() {
			return false, scanner.Err()
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	})
}
