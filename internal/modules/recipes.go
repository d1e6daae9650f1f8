package modules

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goplus/pyport/pkgs/buildsys"
	"github.com/goplus/pyport/x/autotools"
)

// Recipe knows where a module's sources live and how to build them.
type Recipe interface {
	URL(version string) string
	Build(ctx context.Context, req BuildRequest) error
}

// BuildRequest carries everything a recipe needs for one module build.
//
// Recipes configure with Prefix as the install prefix and install into
// StageDir, so the installed files land under StageDir+Prefix.
type BuildRequest struct {
	Version   string
	SourceDir string
	Prefix    string
	StageDir  string
	Runner    buildsys.Runner
	Jobs      int
}

// depEnv makes headers and libraries of modules already merged into the
// prefix visible to the next one.
func depEnv(prefix string) map[string]string {
	include := filepath.Join(prefix, "include")
	return map[string]string{
		"CFLAGS":   "-fPIC -O2 -I" + include,
		"CPPFLAGS": "-I" + include,
		"LDFLAGS":  "-L" + filepath.Join(prefix, "lib"),
	}
}

type argsFunc func(req BuildRequest) []string

func staticArgs(args ...string) argsFunc {
	return func(BuildRequest) []string {
		return append([]string(nil), args...)
	}
}

func withTcl(args ...string) argsFunc {
	return func(req BuildRequest) []string {
		return append([]string{"--with-tcl=" + filepath.Join(req.Prefix, "lib")}, args...)
	}
}

func withTk(args ...string) argsFunc {
	return func(req BuildRequest) []string {
		lib := filepath.Join(req.Prefix, "lib")
		return append([]string{"--with-tcl=" + lib, "--with-tk=" + lib}, args...)
	}
}

func opensslArgs(req BuildRequest) []string {
	return []string{
		"--openssldir=" + filepath.Join(req.Prefix, "ssl"),
		"no-shared",
		"no-idea",
		"no-tests",
		"-fPIC",
	}
}

func urlf(format string) func(string) string {
	return func(version string) string {
		return fmt.Sprintf(format, version)
	}
}

// sqliteYears maps a 3.x minor release to the download directory year.
var sqliteYears = map[int]string{
	32: "2020", 33: "2020", 34: "2020",
	35: "2021", 36: "2021", 37: "2021",
	38: "2022", 39: "2022", 40: "2022",
	41: "2023", 42: "2023", 43: "2023", 44: "2023",
	45: "2024", 46: "2024", 47: "2024",
}

// sqliteURL encodes 3.35.5 as the release number 3350500.
func sqliteURL(version string) string {
	var n [4]int
	for i, part := range strings.SplitN(version, ".", 4) {
		n[i], _ = strconv.Atoi(part)
	}
	year, ok := sqliteYears[n[1]]
	if !ok {
		year = "2021"
	}
	num := n[0]*1000000 + n[1]*10000 + n[2]*100 + n[3]
	return fmt.Sprintf("https://www.sqlite.org/%s/sqlite-autoconf-%d.tar.gz", year, num)
}

// autotoolsRecipe is a configure, make, make install build.
type autotoolsRecipe struct {
	url        func(string) string
	script     string   // configure script relative to the source root
	buildDir   string   // relative to the source root; empty builds in place
	destDirVar string   // make variable naming the staging root; default DESTDIR
	install    string   // install target; default "install"
	args       argsFunc
}

func (r *autotoolsRecipe) URL(version string) string { return r.url(version) }

func (r *autotoolsRecipe) Build(ctx context.Context, req BuildRequest) error {
	var buildDir string
	if r.buildDir != "" {
		buildDir = filepath.Join(req.SourceDir, r.buildDir)
	}
	at := autotools.New(req.Runner, req.SourceDir, buildDir, req.Prefix)
	if r.script != "" {
		at.Script(r.script)
	}
	if r.install != "" {
		at.InstallTarget(r.install)
	}
	at.Jobs(req.Jobs)
	for k, v := range depEnv(req.Prefix) {
		at.Env(k, v)
	}

	var args []string
	if r.args != nil {
		args = r.args(req)
	}
	destVar := r.destDirVar
	if destVar == "" {
		destVar = "DESTDIR"
	}
	return runLifecycle(ctx, at, args, destVar+"="+req.StageDir)
}

// runLifecycle configures, builds and installs with bs.
func runLifecycle(ctx context.Context, bs buildsys.BuildSystem, configure []string, install ...string) error {
	if err := bs.Configure(ctx, configure...); err != nil {
		return err
	}
	if err := bs.Build(ctx); err != nil {
		return err
	}
	return bs.Install(ctx, install...)
}

// makeRecipe builds projects that ship a plain Makefile and take the
// install location through PREFIX.
type makeRecipe struct {
	url func(string) string
}

func (r *makeRecipe) URL(version string) string { return r.url(version) }

func (r *makeRecipe) Build(ctx context.Context, req BuildRequest) error {
	at := autotools.New(req.Runner, req.SourceDir, "", "")
	at.Jobs(req.Jobs)
	cflags := "CFLAGS=-fPIC -O2 -D_FILE_OFFSET_BITS=64"
	if err := at.Build(ctx, cflags, "libbz2.a", "bzip2", "bzip2recover"); err != nil {
		return err
	}
	return at.Install(ctx, cflags, "PREFIX="+filepath.Join(req.StageDir, req.Prefix))
}
