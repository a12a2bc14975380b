// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

// setBuildInfo overrides the ldflags variables for the duration of the test.
func setBuildInfo(t *testing.T, version, commit, buildDate string) {
	t.Helper()
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	Version, Commit, BuildDate = version, commit, buildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
	})
}

func TestGetVersionInfo(t *testing.T) { //nolint:paralleltest // mutates package variables
	tests := []struct {
		name          string
		version       string
		commit        string
		buildDate     string
		wantVersion   string
		wantBuildDate string
	}{
		{
			name:          "dev build without commit",
			version:       "dev",
			commit:        unknownStr,
			buildDate:     unknownStr,
			wantVersion:   "build-unknown",
			wantBuildDate: unknownStr,
		},
		{
			name:          "dev build truncates commit",
			version:       "dev",
			commit:        "0f3c9a71d2e84b6c",
			buildDate:     unknownStr,
			wantVersion:   "build-0f3c9a71",
			wantBuildDate: unknownStr,
		},
		{
			name:          "dev build with short commit",
			version:       "dev",
			commit:        "beef",
			buildDate:     unknownStr,
			wantVersion:   "build-beef",
			wantBuildDate: unknownStr,
		},
		{
			name:          "tagged release",
			version:       "v0.4.0",
			commit:        "0f3c9a71d2e84b6c",
			buildDate:     "2025-06-02T08:15:00Z",
			wantVersion:   "v0.4.0",
			wantBuildDate: "2025-06-02 08:15:00 UTC",
		},
		{
			name:          "build date with offset is normalized to UTC",
			version:       "v0.4.1",
			commit:        "1234567",
			buildDate:     "2025-06-02T10:15:00+02:00",
			wantVersion:   "v0.4.1",
			wantBuildDate: "2025-06-02 08:15:00 UTC",
		},
		{
			name:          "unparseable build date is passed through",
			version:       "v0.4.2",
			commit:        "1234567",
			buildDate:     "last tuesday",
			wantVersion:   "v0.4.2",
			wantBuildDate: "last tuesday",
		},
	}

	for _, tt := range tests { //nolint:paralleltest // mutates package variables
		t.Run(tt.name, func(t *testing.T) {
			setBuildInfo(t, tt.version, tt.commit, tt.buildDate)

			info := GetVersionInfo()
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.commit, info.Commit)
			assert.Equal(t, tt.wantBuildDate, info.BuildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
		})
	}
}

func TestUserAgent(t *testing.T) { //nolint:paralleltest // mutates package variables
	setBuildInfo(t, "v0.4.0", "0f3c9a71", unknownStr)
	assert.Equal(t, "fedauth upstream provider client/v0.4.0", UserAgent())

	setBuildInfo(t, "dev", "0f3c9a71d2e84b6c", unknownStr)
	assert.Equal(t, "fedauth upstream provider client/build-0f3c9a71", UserAgent())
}
