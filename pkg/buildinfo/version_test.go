package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	saved := [3]string{Version, Commit, Date}
	defer func() { Version, Commit, Date = saved[0], saved[1], saved[2] }()

	tests := []struct {
		name                       string
		version, commit, date      string
		info                       debug.BuildInfo
		wantVer, wantCommit, wantD string
	}{
		{
			name:    "ldflags win",
			version: "v1.0.0", commit: "abc", date: "2025-01-01",
			info: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.9.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "def"}},
			},
			wantVer: "v1.0.0", wantCommit: "abc", wantD: "2025-01-01",
		},
		{
			name:    "go install",
			version: "dev", commit: "none", date: "unknown",
			info: debug.BuildInfo{
				Main: debug.Module{Version: "v0.3.1"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "def"},
					{Key: "vcs.time", Value: "2025-02-02T00:00:00Z"},
				},
			},
			wantVer: "v0.3.1", wantCommit: "def", wantD: "2025-02-02T00:00:00Z",
		},
		{
			name:    "local build",
			version: "dev", commit: "none", date: "unknown",
			info:    debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVer: "dev", wantCommit: "none", wantD: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit, Date = tt.version, tt.commit, tt.date
			fromBuildInfo(&tt.info)
			if Version != tt.wantVer || Commit != tt.wantCommit || Date != tt.wantD {
				t.Errorf("got %s/%s/%s, want %s/%s/%s", Version, Commit, Date, tt.wantVer, tt.wantCommit, tt.wantD)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.HasPrefix(tmpl, "{{.Name}} version ") {
		t.Errorf("Template() = %q", tmpl)
	}
	if !strings.Contains(String(), "commit: ") {
		t.Errorf("String() = %q", String())
	}
}
