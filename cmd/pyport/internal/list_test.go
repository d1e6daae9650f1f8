package internal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goplus/pyport/internal/modules"
	"github.com/goplus/pyport/internal/platform"
)

func TestPrintPlan(t *testing.T) {
	p := &modules.Policy{
		Select:   []string{"tk"},
		Versions: map[string]string{"tcl": "8.6.13"},
		Platform: platform.Platform{OS: "linux", Arch: "x86_64"},
	}
	var buf bytes.Buffer
	printPlan(&buf, p.Plan())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(modules.Catalog()) {
		t.Fatalf("got %d lines, want one per module:\n%s", len(lines), buf.String())
	}
	row := func(name string) string {
		for _, l := range lines {
			if strings.HasPrefix(l, name+" ") {
				return l
			}
		}
		t.Fatalf("no row for %s:\n%s", name, buf.String())
		return ""
	}
	tests := []struct {
		name string
		want []string
	}{
		{"tk", []string{"8.6.10", "yes"}},
		{"tcl", []string{"8.6.13", "yes", "required by tk"}},
		{"zlib", []string{"1.2.11", "no", "not selected"}},
	}
	for _, tt := range tests {
		r := row(tt.name)
		for _, w := range tt.want {
			if !strings.Contains(r, w) {
				t.Errorf("row %q missing %q", r, w)
			}
		}
	}
}
