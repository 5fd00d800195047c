package cmd

import (
	"fmt"
	"strings"

	"github.com/harrison/resscan/internal/models"
	"github.com/harrison/resscan/internal/policy"
	"github.com/harrison/resscan/internal/scan"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewCatCommand creates and returns the cat subcommand
func NewCatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <container> <member>",
		Short: "Write one member of a container to stdout",
		Long: `Load a single member of a container and write its bytes to stdout.

The member path is relative to the container root and uses "/" separators,
for example: resscan cat app.jar META-INF/MANIFEST.MF`,
		Args: cobra.ExactArgs(2),
		RunE: runCat,
	}

	addConfigFlags(cmd)
	return cmd
}

// memberEvaluator accepts exactly one member path
type memberEvaluator struct {
	path string
	dir  string
}

func newMemberEvaluator(member string) memberEvaluator {
	member = strings.TrimPrefix(member, "/")
	return memberEvaluator{path: member, dir: policy.ParentDir(member)}
}

func (e memberEvaluator) Classify(dir string) models.Verdict {
	if dir == e.dir {
		return models.AtIncludedPackageWithOverride
	}
	return models.NoMatch
}

func (e memberEvaluator) IsPathSpecificallyIncluded(path string) bool {
	return path == e.path
}

func runCat(cmd *cobra.Command, args []string) error {
	cfg, home, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kindFlag, _ := cmd.Flags().GetString("kind")
	kind, err := models.ParseKind(kindFlag)
	if err != nil {
		return err
	}
	ref, err := containerRef(args[0], kind)
	if err != nil {
		return err
	}

	log, closeLog, _, err := newLogger(cmd, cfg, home, false)
	if err != nil {
		return err
	}
	defer closeLog()

	fsys := afero.NewOsFs()
	registry, err := newRegistry(cfg, fsys)
	if err != nil {
		return err
	}
	defer registry.Close()

	eval := newMemberEvaluator(args[1])
	unit := scan.NewUnit(ref, eval, registry, scan.Options{ScanFiles: true}, log)
	defer unit.Close()

	ctx := cmd.Context()
	unit.Scan(ctx, log)
	if unit.Skipped() {
		return fmt.Errorf("container %s could not be opened", ref)
	}

	matches := unit.FileMatches()
	if len(matches) == 0 {
		return fmt.Errorf("%s has no member %q", ref.Name, eval.path)
	}

	data, err := matches[0].LoadAll(ctx)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
