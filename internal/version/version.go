// Package version описывает сборку. Значения подставляются через -ldflags:
//
//	-X github.com/vladislavdragonenkov/comptoirs/internal/version.version=v0.3.0
//
// Без ldflags коммит и время берутся из VCS-меток, которые go build
// записывает в бинарник.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Build: сведения о текущем бинарнике.
type Build struct {
	Version  string
	Commit   string
	Built    string
	Modified bool
}

var (
	once    sync.Once
	current Build
)

// Current возвращает сведения о сборке; вычисляются один раз.
func Current() Build {
	once.Do(func() {
		info, _ := debug.ReadBuildInfo()
		current = resolve(version, commit, date, info)
	})
	return current
}

func resolve(v, c, d string, info *debug.BuildInfo) Build {
	b := Build{Version: v, Commit: c, Built: d}
	if info != nil {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Built == "" {
					b.Built = s.Value
				}
			case "vcs.modified":
				b.Modified = s.Value == "true"
			}
		}
	}
	if len(b.Commit) > 12 {
		b.Commit = b.Commit[:12]
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Built == "" {
		b.Built = "unknown"
	}
	return b
}

func Version() string { return Current().Version }

func (b Build) String() string {
	dirty := ""
	if b.Modified {
		dirty = "+dirty"
	}
	return fmt.Sprintf("comptoirs %s (%s%s, %s)", b.Version, b.Commit, dirty, b.Built)
}

// Fields: поля стартовой записи лога.
func Fields() log.Fields {
	b := Current()
	return log.Fields{
		"version":  b.Version,
		"commit":   b.Commit,
		"built":    b.Built,
		"modified": b.Modified,
	}
}
