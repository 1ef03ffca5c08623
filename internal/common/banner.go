package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner
func PrintBanner(version string) {
	b := banner.New()
	b.PrintTopLine()
	b.PrintCenteredText("LogSight")
	b.PrintCenteredText("version " + version)
	b.PrintBottomLine()
}
