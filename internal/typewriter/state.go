// Package typewriter reveals a fixed script of text lines one character at a
// time, the way the home page terminal types itself out.
//
// The state machine is a pure function (Advance) over an explicit State. The
// Animator drives it from a single pending timer and hands every snapshot to a
// render callback.
package typewriter

// Script is the ordered, fixed list of lines to type out.
type Script []string

// State is the revealed buffer plus the cursor position.
//
// Revealed[i] is present only for i < len(Revealed). Lines before LineIndex are
// fully revealed, Revealed[LineIndex] (if present) is a prefix of the script
// line, and nothing past LineIndex is present. CharIndex counts runes.
type State struct {
	Revealed  []string
	LineIndex int
	CharIndex int
}

// Initial returns the state at mount: cursor (0,0), empty buffer.
func Initial() State {
	return State{}
}

// Terminal reports whether every line of script has been revealed.
func (s State) Terminal(script Script) bool {
	return s.LineIndex >= len(script)
}

// Present reports whether slot i of the revealed buffer exists.
func (s State) Present(i int) bool {
	return i >= 0 && i < len(s.Revealed)
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	out := State{LineIndex: s.LineIndex, CharIndex: s.CharIndex}
	if len(s.Revealed) > 0 {
		out.Revealed = append([]string(nil), s.Revealed...)
	}
	return out
}

// Advance applies one step to s and returns the result. s is not modified.
// A terminal state is returned unchanged.
func Advance(s State, script Script) State {
	if s.Terminal(script) {
		return s
	}
	next := s.Clone()
	line := []rune(script[next.LineIndex])

	if next.CharIndex == 0 && !next.Present(next.LineIndex) {
		next.Revealed = append(next.Revealed, "")
	}

	if next.CharIndex < len(line) {
		next.Revealed[next.LineIndex] = string(line[:next.CharIndex+1])
		next.CharIndex++
		return next
	}

	next.LineIndex++
	next.CharIndex = 0
	return next
}

// Steps returns how many Advance calls take the initial state to terminal:
// one per rune plus one per line for the line break.
func Steps(script Script) int {
	n := 0
	for _, line := range script {
		n += len([]rune(line)) + 1
	}
	return n
}
