package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_PrefersLdflags(t *testing.T) {
	info := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-04-01T00:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}}

	b := resolve("v0.3.0", "feedbeef", "2026-04-12", info)
	assert.Equal(t, Build{Version: "v0.3.0", Commit: "feedbeef", Built: "2026-04-12", Modified: true}, b)
	assert.Equal(t, "comptoirs v0.3.0 (feedbeef+dirty, 2026-04-12)", b.String())
}

func TestResolve_FallsBackToVCS(t *testing.T) {
	info := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-04-01T00:00:00Z"},
	}}

	b := resolve("dev", "", "", info)
	assert.Equal(t, "0123456789ab", b.Commit)
	assert.Equal(t, "2026-04-01T00:00:00Z", b.Built)
	assert.False(t, b.Modified)
}

func TestResolve_NoBuildInfo(t *testing.T) {
	b := resolve("dev", "", "", nil)
	assert.Equal(t, Build{Version: "dev", Commit: "unknown", Built: "unknown"}, b)
}

func TestFields(t *testing.T) {
	fields := Fields()
	assert.Equal(t, Version(), fields["version"])
	assert.NotEmpty(t, fields["commit"])
	assert.Contains(t, fields, "modified")
}
