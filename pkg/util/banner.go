package util

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
)

const (
	colorReset = "\x1b[0m"
	colorCyan  = "\x1b[1;36m"
)

// PrintBanner renders the startup ASCII banner.
func PrintBanner(text string) {
	fig := figure.NewFigure(text, "", true)
	for _, line := range fig.Slicify() {
		fmt.Println(colorCyan + line + colorReset)
	}
}
