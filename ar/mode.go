package ar

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Mode selects what the overlay demo draws on a detected board.
type Mode string

// The overlay modes.
const (
	ModeAxes    Mode = "axes"
	ModeCube    Mode = "cube"
	ModeHouse   Mode = "house"
	ModeObject  Mode = "object"
	ModeCorners Mode = "corners"
)

// Modes lists every overlay mode.
var Modes = []Mode{ModeAxes, ModeCube, ModeHouse, ModeObject, ModeCorners}

// ParseMode returns the mode with the given name, ignoring case.
func ParseMode(name string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(name, string(m)) {
			return m, nil
		}
	}
	names := lo.Map(Modes, func(m Mode, _ int) string { return string(m) })
	return "", errors.Errorf("unknown overlay mode %q, expected one of %s", name, strings.Join(names, ", "))
}
