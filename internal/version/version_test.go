package version

import (
	"errors"
	"runtime/debug"
	"testing"
)

func TestCurrent(t *testing.T) {
	origVersion, origRead := Version, readBuildInfo
	t.Cleanup(func() { Version, readBuildInfo = origVersion, origRead })

	noBuildInfo := func() (*debug.BuildInfo, bool) { return nil, false }
	develBuild := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	installed := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "v1.4.2"}}, true
	}

	tests := []struct {
		name    string
		version string
		read    func() (*debug.BuildInfo, bool)
		want    string
		wantErr bool
	}{
		{name: "ldflags", version: "1.3.0", read: noBuildInfo, want: "1.3.0"},
		{name: "ldflags with v prefix", version: "v1.3.0", read: noBuildInfo, want: "1.3.0"},
		{name: "module version", version: "dev", read: installed, want: "1.4.2"},
		{name: "devel build", version: "dev", read: develBuild, wantErr: true},
		{name: "nothing available", version: "", read: noBuildInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, readBuildInfo = tt.version, tt.read

			got, err := Current()
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownVersion) {
					t.Fatalf("Current() error = %v, want ErrUnknownVersion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Current() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Current() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFullVersion(t *testing.T) {
	origVersion, origCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	Version, Commit = "v1.2.0", ""
	if got := FullVersion(); got != "v1.2.0" {
		t.Errorf("FullVersion() = %q, want %q", got, "v1.2.0")
	}

	Commit = "abc1234"
	if got := FullVersion(); got != "v1.2.0 (commit abc1234)" {
		t.Errorf("FullVersion() = %q", got)
	}
}
