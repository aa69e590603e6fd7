package main

import (
	"fmt"
	"os"
	"strings"
)

// autoSwitch is the value of an on/off/auto flag such as --ui and --color.
type autoSwitch string

const (
	switchAuto autoSwitch = "auto"
	switchOn   autoSwitch = "on"
	switchOff  autoSwitch = "off"
)

var switchValues = map[string]autoSwitch{
	"":     switchAuto,
	"auto": switchAuto,
	"on":   switchOn,
	"off":  switchOff,
}

// readSwitch parses the value of flag.
func readSwitch(flag, value string) (autoSwitch, error) {
	if sw, ok := switchValues[strings.ToLower(strings.TrimSpace(value))]; ok {
		return sw, nil
	}
	return "", fmt.Errorf("--%s: invalid value %q (expected auto|on|off)", flag, value)
}

// resolve decides the switch for output going to f; auto follows whether
// f is a terminal.
func (sw autoSwitch) resolve(f *os.File) bool {
	switch sw {
	case switchOn:
		return true
	case switchOff:
		return false
	}
	return isTerminal(f)
}
