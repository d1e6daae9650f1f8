package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/pyport/internal/archive"
	"github.com/goplus/pyport/internal/finalize"
	"github.com/goplus/pyport/internal/interp"
	"github.com/goplus/pyport/internal/platform"
	"github.com/goplus/pyport/internal/pyver"
	"github.com/goplus/pyport/pkgs/buildsys"
	"github.com/spf13/cobra"
)

var finalizeFlags struct {
	version string
	static  bool
	tls     bool
	main    string
	output  string
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <install-dir>",
	Short: "Finalize an already installed CPython tree",
	Long: `Finalize prunes, normalizes and relocates an existing CPython install
tree in place. With --output the tree is also archived.`,
	Args: cobra.ExactArgs(1),
	RunE: runFinalize,
}

func init() {
	f := finalizeCmd.Flags()
	f.StringVar(&finalizeFlags.version, "version", "", "CPython version of the tree (required)")
	f.BoolVar(&finalizeFlags.static, "static", false, "The tree is a static build")
	f.BoolVar(&finalizeFlags.tls, "tls", false, "Upgrade pip, setuptools and wheel first")
	f.StringVar(&finalizeFlags.main, "main", "", "Main executable name (discovered by default)")
	f.StringVarP(&finalizeFlags.output, "output", "o", "", "Archive to write (.tar.gz or .tar.xz)")
	finalizeCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(finalizeCmd)
}

func runFinalize(cmd *cobra.Command, args []string) error {
	v, err := pyver.Parse(finalizeFlags.version)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return fmt.Errorf("%s: not an install directory", args[0])
	}

	logger := newLogger(logLevel())
	main := finalizeFlags.main
	if main == "" {
		inst := interp.Inspect(root, v)
		if !inst.MainFound {
			logger.Warn("No python executable found, assuming default name", "main", inst.Main)
		}
		main = inst.Main
	}

	opts := finalize.Options{
		Version: v,
		Static:  finalizeFlags.static,
		TLS:     finalizeFlags.tls,
		Main:    main,
		Runner:  &buildsys.ExecRunner{},
		Logger:  logger,
	}
	if out := finalizeFlags.output; out != "" {
		if out, err = filepath.Abs(out); err != nil {
			return err
		}
		if filepath.Ext(out) == "" {
			plat, err := platform.Detect()
			if err != nil {
				return err
			}
			out = filepath.Join(out, archive.Name(v, plat, finalizeFlags.static, "gz"))
		}
		opts.Archive = func(root string) error {
			digest, err := archive.Digest(root)
			if err != nil {
				return err
			}
			if err := archive.Compress(root, out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		}
	}
	return finalize.New(opts).Run(context.Background(), root)
}
