package cmd

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/resscan/internal/config"
	"github.com/harrison/resscan/internal/container"
	"github.com/harrison/resscan/internal/display"
	"github.com/harrison/resscan/internal/logger"
	"github.com/harrison/resscan/internal/models"
	"github.com/harrison/resscan/internal/modindex"
	"github.com/harrison/resscan/internal/pool"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// addConfigFlags registers the flags shared by every subcommand
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .resscan/config.yaml)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("kind", "", "Container kind: dir, zip, tar, s3 (default: detect)")
	cmd.Flags().Int("pool-capacity", 0, "Readers leased at once per container (0 = unbounded)")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress console logging")
}

// loadConfig loads the config file, .env and environment overrides, then
// merges the flags that were set on cmd. It returns the state directory too.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	home, err := config.FindHome("")
	if err != nil {
		return nil, "", err
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = filepath.Join(home, "config.yaml")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	config.LoadEnvFiles()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", err
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return nil, "", err
	}
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, home, nil
}

// flagOverrides collects the flags that were explicitly set. Flags a
// subcommand does not define are ignored.
func flagOverrides(cmd *cobra.Command) (config.FlagOverrides, error) {
	var f config.FlagOverrides
	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	if changed("log-level") {
		v, _ := flags.GetString("log-level")
		f.LogLevel = &v
	}
	if changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		f.LogDir = &v
	}
	if changed("workers") {
		v, _ := flags.GetInt("workers")
		f.Workers = &v
	}
	if changed("pool-capacity") {
		v, _ := flags.GetInt("pool-capacity")
		f.PoolCapacity = &v
	}
	if changed("class-info") {
		v, _ := flags.GetBool("class-info")
		f.EnableClassInfo = &v
	}
	if changed("no-index") {
		v, _ := flags.GetBool("no-index")
		enabled := !v
		f.IndexEnabled = &enabled
	}
	for name, dst := range map[string]*[]string{
		"accept":      &f.Accept,
		"reject":      &f.Reject,
		"accept-file": &f.AcceptFiles,
	} {
		if changed(name) {
			v, err := flags.GetStringArray(name)
			if err != nil {
				return f, err
			}
			*dst = v
		}
	}
	return f, nil
}

// containerRef maps one command line argument onto a container reference.
// s3:// arguments name a bucket prefix; anything else is a local path.
func containerRef(arg string, kind models.ContainerKind) (models.ContainerRef, error) {
	if strings.HasPrefix(arg, "s3://") {
		if _, _, err := container.ParseS3Location(arg); err != nil {
			return models.ContainerRef{}, err
		}
		return models.ContainerRef{
			Name:     strings.TrimSuffix(arg, "/"),
			Location: arg,
			Kind:     models.KindS3,
		}, nil
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return models.ContainerRef{}, fmt.Errorf("failed to get absolute path for %s: %w", arg, err)
	}
	loc := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return models.ContainerRef{
		Name:     filepath.Base(abs),
		Location: loc.String(),
		File:     abs,
		Kind:     kind,
	}, nil
}

// resolveRefs expands the arguments into container references. With expand
// set, a directory argument becomes one container per archive found below it.
func resolveRefs(fsys afero.Fs, args []string, kind models.ContainerKind, expand bool, progress io.Writer) ([]models.ContainerRef, error) {
	var indicator *display.ProgressIndicator
	if progress != nil && len(args) > 1 {
		indicator = display.NewProgressIndicator(progress, len(args))
		indicator.Start()
	}

	var refs []models.ContainerRef
	seen := make(map[string]bool)
	add := func(ref models.ContainerRef) {
		if key := ref.Identity(); !seen[key] {
			seen[key] = true
			refs = append(refs, ref)
		}
	}

	for _, arg := range args {
		if indicator != nil {
			indicator.Step(arg)
		}
		ref, err := containerRef(arg, kind)
		if err != nil {
			return nil, err
		}
		if !expand || ref.File == "" {
			add(ref)
			continue
		}
		info, err := fsys.Stat(ref.File)
		if err != nil || !info.IsDir() {
			add(ref)
			continue
		}
		archives, err := display.FindContainers(fsys, ref.File, true)
		if err != nil {
			return nil, err
		}
		for _, rel := range archives {
			child, err := containerRef(filepath.Join(ref.File, filepath.FromSlash(rel)), kind)
			if err != nil {
				return nil, err
			}
			add(child)
		}
	}

	if indicator != nil {
		indicator.Complete(len(refs))
	} else if progress != nil && len(refs) == 1 {
		display.DisplaySingleContainer(progress, refs[0].Name)
	}
	return refs, nil
}

// newRegistry creates the reader pool registry used by every command
func newRegistry(cfg *config.Config, fsys afero.Fs) (*pool.Registry, error) {
	opts := cfg.ContainerOptions(fsys)
	return pool.NewRegistry(cfg.Pool.RegistrySize, cfg.Pool.Capacity, func(ref models.ContainerRef) (container.Reader, error) {
		return container.Open(ref, opts)
	})
}

// openIndex opens the modification index, or returns nil when it is disabled
func openIndex(cfg *config.Config, home string) (*modindex.Index, error) {
	if !cfg.Index.Enabled {
		return nil, nil
	}
	return modindex.Open(config.ResolvePath(home, cfg.Index.DBPath))
}

// newLogger builds the console logger (discarding everything with --quiet)
// and, when withFile is set, a file logger in the configured log directory.
// The returned path is the run log.
func newLogger(cmd *cobra.Command, cfg *config.Config, home string, withFile bool) (logger.RunLogger, func(), string, error) {
	var console logger.RunLogger = logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		console = logger.NewNoOpLogger()
	}
	if !withFile || cfg.LogDir == "" {
		return console, func() {}, "", nil
	}

	fileLog, err := logger.NewFileLoggerWithDirAndLevel(config.ResolvePath(home, cfg.LogDir), cfg.LogLevel)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create file logger: %w", err)
	}
	return logger.NewMulti(console, fileLog), func() { fileLog.Close() }, fileLog.RunFile(), nil
}

// progressWriter returns stderr when it is a terminal, nil otherwise
func progressWriter(cmd *cobra.Command) io.Writer {
	w := cmd.ErrOrStderr()
	f, ok := w.(*os.File)
	if !ok {
		return nil
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return w
	}
	return nil
}
