package main

import (
	"os"
	"strings"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", usageErrorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI keeps the progress view off stdout when generated files are
// printed there.
func shouldUseTUI(mode uiMode, printing bool) bool {
	switch {
	case printing:
		return false
	case mode == uiModeOn:
		return true
	case mode == uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
