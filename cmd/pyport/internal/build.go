package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/goplus/pyport/internal/build"
	"github.com/goplus/pyport/internal/config"
	"github.com/goplus/pyport/internal/env"
	"github.com/goplus/pyport/internal/source"
	"github.com/goplus/pyport/mod/module"
	"github.com/goplus/pyport/pkgs/buildsys"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	static      bool
	modules     []string
	exclude     []string
	bestEffort  []string
	pins        []string
	pinsFile    string
	jobs        int
	moduleJobs  int
	dist        string
	buildDir    string
	compile     bool
	compression string
	target      string
}

var buildFlags buildOptions

var buildCmd = &cobra.Command{
	Use:   "build [version]",
	Short: "Build a portable CPython",
	Long: `Build downloads CPython and the selected native modules, compiles them,
finalizes the install tree and writes the archive to the dist directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.BoolVar(&buildFlags.static, "static", false, "Build the static variant")
	f.StringSliceVarP(&buildFlags.modules, "modules", "m", nil, `Modules to build: names, "all" or "none"`)
	f.StringSliceVar(&buildFlags.exclude, "exclude", nil, "Modules never to build")
	f.StringSliceVar(&buildFlags.bestEffort, "best-effort", nil, "Modules allowed to fail")
	f.StringArrayVar(&buildFlags.pins, "pin", nil, "Pin a module version, as name@version")
	f.StringVar(&buildFlags.pinsFile, "pins", "", "TOML file of module version pins")
	f.IntVarP(&buildFlags.jobs, "jobs", "j", 0, "Parallel make jobs")
	f.IntVar(&buildFlags.moduleJobs, "module-jobs", 0, "Modules built at once")
	f.StringVarP(&buildFlags.dist, "dist", "o", "", "Output directory for archives")
	f.StringVar(&buildFlags.buildDir, "build-dir", "", "Build directory; its <version> subdirectory is wiped on start")
	f.BoolVar(&buildFlags.compile, "compile", false, "Byte-compile the standard library")
	f.StringVar(&buildFlags.compression, "compression", "", "Archive compression: gz or xz")
	f.StringVar(&buildFlags.target, "target", "", "Target platform as os-arch")
	rootCmd.AddCommand(buildCmd)
}

// applyBuildFlags overrides cfg with every flag set on cmd.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("static") {
		cfg.Static = buildFlags.static
	}
	if changed("modules") {
		cfg.Modules.Select = buildFlags.modules
	}
	if changed("exclude") {
		cfg.Modules.Exclude = buildFlags.exclude
	}
	if changed("best-effort") {
		cfg.Modules.BestEffort = buildFlags.bestEffort
	}
	if changed("pins") {
		cfg.Pins = buildFlags.pinsFile
	}
	if changed("jobs") {
		cfg.Jobs = buildFlags.jobs
	}
	if changed("module-jobs") {
		cfg.ModuleJobs = buildFlags.moduleJobs
	}
	if changed("dist") {
		cfg.DistDir = buildFlags.dist
	}
	if changed("build-dir") {
		cfg.BuildDir = buildFlags.buildDir
	}
	if changed("compile") {
		cfg.Compile = buildFlags.compile
	}
	if changed("compression") {
		cfg.Compression = buildFlags.compression
	}
	if changed("target") {
		cfg.Target = buildFlags.target
	}
	for _, arg := range buildFlags.pins {
		v, err := module.Parse(arg)
		if err != nil {
			return err
		}
		if v.Version == "" {
			return fmt.Errorf("--pin %s: missing @version", arg)
		}
		cfg.Pin(v)
	}
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := applyBuildFlags(cmd, cfg); err != nil {
		return err
	}
	logger := newLogger(cfg.Level())

	downloads, err := env.DownloadDir()
	if err != nil {
		return err
	}
	// Tool output is only shown with -v.
	runner := &buildsys.ExecRunner{Stdout: io.Discard, Stderr: io.Discard}
	if verbose {
		runner.Stdout, runner.Stderr = os.Stdout, os.Stderr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b := &build.Builder{
		Config:  cfg,
		Fetcher: source.NewHTTPFetcher(downloads, logger),
		Runner:  runner,
		Logger:  logger,
	}
	res, err := b.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Archive)
	fmt.Fprintln(cmd.OutOrStdout(), res.Digest)
	return nil
}
