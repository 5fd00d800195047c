package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/harrison/resscan/internal/display"
	"github.com/harrison/resscan/internal/models"
	"github.com/harrison/resscan/internal/report"
	"github.com/harrison/resscan/internal/runner"
	"github.com/harrison/resscan/internal/scan"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewScanCommand creates and returns the scan subcommand
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <container>...",
		Short: "List the resources of one or more containers that match the policy",
		Long: `Scan containers and report the members accepted by the inclusion policy.

A container is a jar/zip archive, a tar or tar.gz archive, a directory tree
or an s3://bucket/prefix location. A directory argument is scanned as a
single tree unless --expand is given, in which case every archive below it
becomes its own container.

Policy rules come from .resscan/config.yaml and are extended by flags:
  --accept com/example/          include everything at or below a directory
  --reject com/example/internal/ exclude a directory and everything below it
  --accept-file 'META-INF/*.MF'  include specific members (doublestar glob)

Containers that cannot be opened are reported as skipped; they never abort
the run.

Configuration is loaded from .resscan/config.yaml if present.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScan,
	}

	addConfigFlags(cmd)
	cmd.Flags().StringArray("accept", nil, "Directory prefix to include (repeatable)")
	cmd.Flags().StringArray("reject", nil, "Directory prefix to exclude (repeatable)")
	cmd.Flags().StringArray("accept-file", nil, "Glob of specific members to include (repeatable)")
	cmd.Flags().StringP("format", "f", "text", "Report format: text, yaml, json, markdown, html")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().Int("workers", 0, "Containers scanned concurrently (0 = use config)")
	cmd.Flags().Bool("class-info", true, "Collect classfile matches")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().Bool("no-index", false, "Do not record modification times")
	cmd.Flags().Bool("expand", false, "Scan each archive below a directory argument separately")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, home, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	kindFlag, _ := cmd.Flags().GetString("kind")
	kind, err := models.ParseKind(kindFlag)
	if err != nil {
		return err
	}
	eval, err := cfg.Evaluator()
	if err != nil {
		return err
	}

	fsys := afero.NewOsFs()
	progress := progressWriter(cmd)
	expand, _ := cmd.Flags().GetBool("expand")
	refs, err := resolveRefs(fsys, args, kind, expand, progress)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("no containers found in %v", args)
	}

	log, closeLog, runFile, err := newLogger(cmd, cfg, home, true)
	if err != nil {
		return err
	}
	defer closeLog()

	registry, err := newRegistry(cfg, fsys)
	if err != nil {
		return err
	}
	defer registry.Close()

	index, err := openIndex(cfg, home)
	if err != nil {
		return err
	}
	if index != nil {
		defer index.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	r := runner.New(runner.Config{
		Source:    registry,
		Evaluator: eval,
		Options: scan.Options{
			ScanFiles:       cfg.ScanFiles,
			EnableClassInfo: cfg.EnableClassInfo,
			Stat:            fsys.Stat,
		},
		Workers: cfg.Workers,
		Index:   index,
		Logger:  log,
		OnResult: func(done, total int, result models.ContainerResult) {
			log.LogContainerResult(done, total, result)
			if progress != nil {
				log.LogProgress(done, total)
			}
		},
	})

	result, err := r.Run(ctx, refs)
	if err != nil {
		return err
	}
	log.LogSummary(result)

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		if err := report.WriteFile(ctx, output, result, format); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to: %s\n", output)
	} else if err := report.Write(cmd.OutOrStdout(), result, format); err != nil {
		return err
	}

	if warning, ok := display.WarnSkippedContainers(result, runFile); ok {
		warning.Display(cmd.ErrOrStderr())
	}
	return nil
}
