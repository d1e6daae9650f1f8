package modules

import (
	"errors"
	"testing"
)

func TestCatalogOrder(t *testing.T) {
	seen := make(map[string]bool)
	for i, d := range Catalog() {
		if d.Kind != Kind(i) {
			t.Errorf("%s: Kind = %d, want %d", d.Name, d.Kind, i)
		}
		if d.Name != d.Kind.String() {
			t.Errorf("Kind %d String() = %q, Name = %q", i, d.Kind, d.Name)
		}
		if seen[d.Name] {
			t.Errorf("duplicate module %q", d.Name)
		}
		seen[d.Name] = true
		if d.DefaultVersion == "" || d.Recipe == nil {
			t.Errorf("%s: missing default version or recipe", d.Name)
		}
		for _, req := range d.Requires {
			if req >= d.Kind {
				t.Errorf("%s requires %s, which is built later", d.Name, req)
			}
		}
	}
	if len(seen) != 13 {
		t.Errorf("catalog has %d modules, want 13", len(seen))
	}
}

func TestLookup(t *testing.T) {
	d, err := Lookup("openssl")
	if err != nil {
		t.Fatal(err)
	}
	if !d.TLS || d.HeaderSubdir != "openssl" {
		t.Errorf("openssl = %+v", d)
	}
	if d, _ := Lookup("tcl"); !d.Toolkit {
		t.Error("tcl should provide the toolkit")
	}
	if _, err := Lookup("numpy"); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("Lookup(numpy) err = %v, want ErrUnknownModule", err)
	}
	if got := Kind(99).String(); got != "Kind(99)" {
		t.Errorf("Kind(99).String() = %q", got)
	}
}

func TestHeaderSubdirs(t *testing.T) {
	var got []string
	for _, d := range Catalog() {
		if d.HeaderSubdir != "" {
			got = append(got, d.Name)
		}
	}
	want := []string{"openssl", "uuid", "readline"}
	if len(got) != len(want) {
		t.Fatalf("modules with header subdirs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("modules with header subdirs = %v, want %v", got, want)
		}
	}
}

func TestURLs(t *testing.T) {
	tests := []struct {
		kind    Kind
		version string
		want    string
	}{
		{Zlib, "1.2.11", "https://zlib.net/fossils/zlib-1.2.11.tar.gz"},
		{LibFFI, "3.3", "https://github.com/libffi/libffi/releases/download/v3.3/libffi-3.3.tar.gz"},
		{Openssl, "1.1.1k", "https://www.openssl.org/source/openssl-1.1.1k.tar.gz"},
		{Sqlite, "3.35.5", "https://www.sqlite.org/2021/sqlite-autoconf-3350500.tar.gz"},
		{Sqlite, "3.45.1", "https://www.sqlite.org/2024/sqlite-autoconf-3450100.tar.gz"},
		{Tix, "8.4.3", "https://sourceforge.net/projects/tix/files/tix/8.4.3/Tix8.4.3-src.tar.gz"},
	}
	for _, tt := range tests {
		if got := Get(tt.kind).Recipe.URL(tt.version); got != tt.want {
			t.Errorf("%s URL(%s) = %q, want %q", tt.kind, tt.version, got, tt.want)
		}
	}
}
