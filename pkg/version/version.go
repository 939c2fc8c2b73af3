package version

import "runtime/debug"

// Version is the storymap release. Release builds set it with
//
//	go build -ldflags "-X github.com/vanderheijden86/storymap/pkg/version.Version=v0.2.0"
var Version = "v0.1.0-dev"

func init() {
	if Version != "v0.1.0-dev" {
		return
	}
	// go install records the module version.
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
}
