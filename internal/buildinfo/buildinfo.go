// Package buildinfo holds values stamped at link time with -ldflags "-X".
package buildinfo

import "fmt"

const Graffiti = " _  __ _   _  _   _ \n| |/ /| \\ | || \\ | |\n| ' / |  \\| ||  \\| |\n| . \\ | |\\  || |\\  |\n|_|\\_\\|_| \\_||_| \\_|\n\n"

var (
	BuildTag = "v0.0.0"
	Name     = "KNN"
	Time     = ""
)

type buildinfo struct{}

func (buildinfo) Tag() string  { return BuildTag }
func (buildinfo) Name() string { return Name }

// Time falls back to "dev" for unstamped builds.
func (buildinfo) Time() string {
	if Time == "" {
		return "dev"
	}
	return Time
}

func (b buildinfo) String() string {
	return fmt.Sprintf("%s: %s, %s", b.Name(), b.Time(), b.Tag())
}

var Info buildinfo
