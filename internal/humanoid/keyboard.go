// -- internal/humanoid/keyboard.go --
package humanoid

import (
	"math/rand"
	"time"
	"unicode"
)

// -- keyboardNeighbors --
// Physically adjacent keys on a US QWERTY layout.
var keyboardNeighbors = map[rune]string{
	'1': "2q`", '2': "13wq", '3': "24we", '4': "35er", '5': "46rt", '6': "57ty",
	'7': "68yu", '8': "79ui", '9': "80io", '0': "9-op",
	'q': "wa1s", 'w': "qase23", 'e': "wsdr34", 'r': "edft45", 't': "rfgy56",
	'y': "tghu67", 'u': "yhji78", 'i': "ujko89", 'o': "iklp90", 'p': "ol;0-",
	'a': "qwsz", 's': "awedxz", 'd': "serfcx", 'f': "drtgvc", 'g': "ftyhbv",
	'h': "gyujnb", 'j': "huikmn", 'k': "jiol,m", 'l': "kop;.",
	'z': "asx", 'x': "zsdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn", 'n': "bhjm", 'm': "njk,",
}

const randomLetters = "abcdefghijklmnopqrstuvwxyz"

// Typo correction timings, in milliseconds.
const (
	noticeMinMs     = 120.0
	noticeMaxMs     = 280.0
	backspaceMinMs  = 50.0
	backspaceMaxMs  = 90.0
	correctionMinMs = 80.0
	correctionMaxMs = 200.0
)

// TypoState is the state of the typo machine.
type TypoState int

const (
	TypoClean TypoState = iota
	TypoErring
)

func (s TypoState) String() string {
	if s == TypoErring {
		return "erring"
	}
	return "clean"
}

// Typo describes one wrong keystroke and how it gets corrected: type Wrong,
// wait Notice, press backspace for BackspaceHold, wait Correction, then type
// the intended character.
type Typo struct {
	Wrong         rune
	Notice        time.Duration
	BackspaceHold time.Duration
	Correction    time.Duration
}

// TypoMachine decides, character by character, whether to fumble a key.
// It is not safe for concurrent use; each session owns one.
type TypoMachine struct {
	rng         *rand.Rand
	state       TypoState
	consecutive int
}

// NewTypoMachine creates a machine in the clean state.
func NewTypoMachine(rng *rand.Rand) *TypoMachine {
	return &TypoMachine{rng: rng}
}

// State returns the current state.
func (m *TypoMachine) State() TypoState { return m.state }

// Consecutive returns how many typos have been made in a row.
func (m *TypoMachine) Consecutive() int { return m.consecutive }

// Next decides whether r is typed wrong first. Only letters and digits are
// eligible, and never more than cfg.MaxConsecutive characters in a row. A
// character typed cleanly resets the streak. When a typo is returned the
// machine is erring until Corrected is called.
func (m *TypoMachine) Next(r rune, cfg Config) (Typo, bool) {
	if m.state == TypoErring || cfg.Strict || !cfg.Typos || !isAlphanumeric(r) ||
		m.consecutive >= cfg.MaxConsecutive || m.rng.Intn(100) >= cfg.MistakePct {
		m.consecutive = 0
		return Typo{}, false
	}

	m.state = TypoErring
	m.consecutive++
	return Typo{
		Wrong:         m.wrongKey(r),
		Notice:        msToDuration(sampleUniform(m.rng, noticeMinMs, noticeMaxMs)),
		BackspaceHold: msToDuration(sampleUniform(m.rng, backspaceMinMs, backspaceMaxMs)),
		Correction:    msToDuration(sampleUniform(m.rng, correctionMinMs, correctionMaxMs)),
	}, true
}

// Corrected returns the machine to the clean state once the backspace and
// the intended character have been sent.
func (m *TypoMachine) Corrected() {
	m.state = TypoClean
}

// Reset clears all state.
func (m *TypoMachine) Reset() {
	m.state = TypoClean
	m.consecutive = 0
}

// wrongKey picks an adjacent key when one is known, else a random letter,
// matching the case of the intended character.
func (m *TypoMachine) wrongKey(r rune) rune {
	lower := unicode.ToLower(r)
	var wrong rune
	if neighbors, ok := keyboardNeighbors[lower]; ok && len(neighbors) > 0 {
		wrong = rune(neighbors[m.rng.Intn(len(neighbors))])
	} else {
		for wrong = lower; wrong == lower; {
			wrong = rune(randomLetters[m.rng.Intn(len(randomLetters))])
		}
	}
	if unicode.IsUpper(r) {
		wrong = unicode.ToUpper(wrong)
	}
	return wrong
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
