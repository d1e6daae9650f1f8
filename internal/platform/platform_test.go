package platform

import "testing"

func TestFromGo(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "linux-x86_64", false},
		{"linux", "arm64", "linux-arm64", false},
		{"darwin", "arm64", "macos-arm64", false},
		{"darwin", "amd64", "macos-x86_64", false},
		{"windows", "amd64", "", true},
		{"linux", "mips", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			p, err := FromGo(tt.goos, tt.goarch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromGo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.String() != tt.want {
				t.Errorf("FromGo() = %q, want %q", p, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("macos-arm64")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.IsMacOS() || p.IsLinux() || p.Arch != "arm64" {
		t.Errorf("Parse = %+v", p)
	}
	for _, bad := range []string{"", "linux", "-x86_64", "windows-x86_64"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) succeeded", bad)
		}
	}
}
