package api

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
)

// Build metadata, overridden via -ldflags "-X".
var (
	EngineVersion = "dev"
	GitCommit     = ""
	BuildTime     = ""
)

var (
	versionOnce sync.Once
	version     VersionInfo
)

// GetVersionInfo reports build metadata. Fields not set by ldflags fall
// back to the VCS stamp the go tool embeds.
func GetVersionInfo() VersionInfo {
	versionOnce.Do(func() {
		version = VersionInfo{
			EngineVersion: EngineVersion,
			GitCommit:     GitCommit,
			BuildTime:     BuildTime,
			GoVersion:     runtime.Version(),
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && version.GitCommit == "":
				version.GitCommit = s.Value
			case s.Key == "vcs.time" && version.BuildTime == "":
				version.BuildTime = s.Value
			}
		}
	})
	return version
}

// GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}
