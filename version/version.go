package version

import "runtime/debug"

// The version can be set at build time, e.g.
// go build -ldflags "-X github.com/vsariola/tahti/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short vcs revision of the build, with a -dirty suffix if the
// tree was modified.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return revision(info.Settings)
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

func revision(settings []debug.BuildSetting) string {
	modified := false
	hash := ""
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.modified":
			modified = setting.Value == "true"
		case "vcs.revision":
			hash = setting.Value[:min(7, len(setting.Value))]
		}
	}
	if hash != "" && modified {
		return hash + "-dirty"
	}
	return hash
}
