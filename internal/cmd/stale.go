package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/harrison/resscan/internal/models"
	"github.com/harrison/resscan/internal/runner"
	"github.com/harrison/resscan/internal/scan"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewStaleCommand creates and returns the stale subcommand
func NewStaleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stale [container]...",
		Short: "List containers changed since they were last scanned",
		Long: `Compare the modification time of each container's backing file with the
time recorded by the last scan. Containers never scanned are stale too.

With --list, print every entry in the modification index instead.`,
		RunE: runStale,
	}

	addConfigFlags(cmd)
	cmd.Flags().Bool("list", false, "Print the recorded modification index")
	cmd.Flags().Bool("expand", false, "Check each archive below a directory argument separately")
	return cmd
}

func runStale(cmd *cobra.Command, args []string) error {
	cfg, home, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Index.Enabled {
		return fmt.Errorf("the modification index is disabled (index.enabled: false)")
	}

	index, err := openIndex(cfg, home)
	if err != nil {
		return err
	}
	defer index.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	list, _ := cmd.Flags().GetBool("list")
	if list {
		entries, err := index.All(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\n", e.File, e.Modified.Format(time.RFC3339))
		}
		return tw.Flush()
	}
	if len(args) == 0 {
		return fmt.Errorf("requires at least 1 container unless --list is given")
	}

	kindFlag, _ := cmd.Flags().GetString("kind")
	kind, err := models.ParseKind(kindFlag)
	if err != nil {
		return err
	}
	fsys := afero.NewOsFs()
	expand, _ := cmd.Flags().GetBool("expand")
	refs, err := resolveRefs(fsys, args, kind, expand, nil)
	if err != nil {
		return err
	}

	log, closeLog, _, err := newLogger(cmd, cfg, home, false)
	if err != nil {
		return err
	}
	defer closeLog()

	r := runner.New(runner.Config{
		Index:   index,
		Logger:  log,
		Options: scan.Options{Stat: fsys.Stat},
	})
	stale, err := r.Stale(ctx, refs)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		fmt.Fprintf(out, "All %d containers are up to date\n", len(refs))
		return nil
	}
	for _, ref := range stale {
		fmt.Fprintln(out, ref.File)
	}
	return nil
}
