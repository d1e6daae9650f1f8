package modules

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goplus/pyport/pkgs/buildsys"
)

type cmdRecorder struct {
	cmds []buildsys.Cmd
}

func (r *cmdRecorder) Run(ctx context.Context, c buildsys.Cmd) error {
	r.cmds = append(r.cmds, c)
	return nil
}

func runRecipe(t *testing.T, k Kind) ([]buildsys.Cmd, BuildRequest) {
	t.Helper()
	rec := &cmdRecorder{}
	req := BuildRequest{
		Version:   Get(k).DefaultVersion,
		SourceDir: t.TempDir(),
		Prefix:    "/work/deps",
		StageDir:  "/work/stage/" + k.String(),
		Runner:    rec,
		Jobs:      2,
	}
	if err := Get(k).Recipe.Build(context.Background(), req); err != nil {
		t.Fatalf("%s: Build: %v", k, err)
	}
	return rec.cmds, req
}

func TestAutotoolsRecipe(t *testing.T) {
	cmds, req := runRecipe(t, Zlib)
	if len(cmds) != 3 {
		t.Fatalf("got %d commands, want configure, make, make install", len(cmds))
	}
	if want := filepath.Join(req.SourceDir, "configure"); cmds[0].Name != want {
		t.Errorf("configure = %q, want %q", cmds[0].Name, want)
	}
	if want := []string{"--prefix=/work/deps", "--static"}; !reflect.DeepEqual(cmds[0].Args, want) {
		t.Errorf("configure args = %v, want %v", cmds[0].Args, want)
	}
	if got := cmds[0].Env["CPPFLAGS"]; got != "-I/work/deps/include" {
		t.Errorf("CPPFLAGS = %q", got)
	}
	if want := []string{"install", "DESTDIR=/work/stage/zlib"}; !reflect.DeepEqual(cmds[2].Args, want) {
		t.Errorf("install args = %v, want %v", cmds[2].Args, want)
	}
}

func TestTclRecipeBuildsInUnixDir(t *testing.T) {
	cmds, req := runRecipe(t, Tk)
	unix := filepath.Join(req.SourceDir, "unix")
	for _, c := range cmds {
		if c.Dir != unix {
			t.Errorf("%s ran in %q, want %q", c, c.Dir, unix)
		}
	}
	if got := cmds[0].Args[1]; got != "--with-tcl=/work/deps/lib" {
		t.Errorf("tk configure arg = %q", got)
	}
	if got := cmds[2].Args[1]; got != "INSTALL_ROOT=/work/stage/tk" {
		t.Errorf("tk install arg = %q", got)
	}
}

func TestOpensslRecipe(t *testing.T) {
	cmds, req := runRecipe(t, Openssl)
	if want := filepath.Join(req.SourceDir, "config"); cmds[0].Name != want {
		t.Errorf("configure = %q, want %q", cmds[0].Name, want)
	}
	if got := cmds[2].Args[0]; got != "install_sw" {
		t.Errorf("install target = %q, want install_sw", got)
	}
}

func TestBdbRecipe(t *testing.T) {
	cmds, req := runRecipe(t, Bdb)
	if want := filepath.Join(req.SourceDir, "dist", "configure"); cmds[0].Name != want {
		t.Errorf("configure = %q, want %q", cmds[0].Name, want)
	}
	if want := filepath.Join(req.SourceDir, "build_unix"); cmds[0].Dir != want {
		t.Errorf("Dir = %q, want %q", cmds[0].Dir, want)
	}
}

func TestBzip2Recipe(t *testing.T) {
	cmds, _ := runRecipe(t, Bzip2)
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want make and make install", len(cmds))
	}
	last := cmds[1].Args
	if last[0] != "install" || last[len(last)-1] != "PREFIX=/work/stage/bzip2/work/deps" {
		t.Errorf("install args = %v", last)
	}
}

// stepRecorder is a buildsys.BuildSystem that records lifecycle calls.
type stepRecorder struct {
	steps []string
	fail  string
}

func (s *stepRecorder) Env(key, val string) {}

func (s *stepRecorder) step(name string, args []string) error {
	s.steps = append(s.steps, name+" "+strings.Join(args, " "))
	if name == s.fail {
		return errors.New("exit status 1")
	}
	return nil
}

func (s *stepRecorder) Configure(ctx context.Context, args ...string) error {
	return s.step("configure", args)
}

func (s *stepRecorder) Build(ctx context.Context, args ...string) error {
	return s.step("build", args)
}

func (s *stepRecorder) Install(ctx context.Context, args ...string) error {
	return s.step("install", args)
}

func (s *stepRecorder) OutputDir() string { return "" }

func TestRunLifecycle(t *testing.T) {
	tests := []struct {
		fail string
		want []string
	}{
		{"", []string{"configure --static", "build ", "install DESTDIR=/stage"}},
		{"configure", []string{"configure --static"}},
		{"build", []string{"configure --static", "build "}},
	}
	for _, tt := range tests {
		t.Run("fail="+tt.fail, func(t *testing.T) {
			bs := &stepRecorder{fail: tt.fail}
			err := runLifecycle(context.Background(), bs, []string{"--static"}, "DESTDIR=/stage")
			if (err != nil) != (tt.fail != "") {
				t.Errorf("err = %v", err)
			}
			if !reflect.DeepEqual(bs.steps, tt.want) {
				t.Errorf("steps = %q, want %q", bs.steps, tt.want)
			}
		})
	}
}
