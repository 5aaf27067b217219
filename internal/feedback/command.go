// internal/feedback/command.go
// Package feedback turns playback requests into timed tone and light pulses
// on a dedicated worker so that input handling never waits on audio timing.
package feedback

import (
	"fmt"

	"github.com/ColonelBlimp/morsetrainer/internal/cw"
)

// Kind identifies what a Command plays.
type Kind uint8

const (
	// KindDot plays a single dot
	KindDot Kind = iota + 1
	// KindDash plays a single dash
	KindDash
	// KindCharacter plays every element of a character
	KindCharacter
	// KindFlash blinks the light green without sound
	KindFlash
)

func (k Kind) String() string {
	switch k {
	case KindDot:
		return "dot"
	case KindDash:
		return "dash"
	case KindCharacter:
		return "character"
	case KindFlash:
		return "flash"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Command is one playback request. Char is only used by KindCharacter.
type Command struct {
	Kind Kind
	Char rune
}

// SymbolCommand returns the command that plays sym.
func SymbolCommand(sym cw.Symbol) Command {
	if sym == cw.Dash {
		return Command{Kind: KindDash}
	}
	return Command{Kind: KindDot}
}

func (c Command) String() string {
	if c.Kind == KindCharacter {
		return fmt.Sprintf("character(%c)", c.Char)
	}
	return c.Kind.String()
}
