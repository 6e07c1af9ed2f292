package typewriter

import (
	"fmt"
	"strings"
)

// Class is the styling bucket for a terminal line.
type Class string

const (
	ClassKeyword  Class = "keyword"
	ClassFunction Class = "function"
	ClassString   Class = "string"
	ClassComment  Class = "comment"
	ClassPlain    Class = "plain"
)

var keywordPrefixes = []string{"const", "async", "function", "return", "new", "console"}

// Classify buckets a full script line for styling. It is cosmetic only.
func Classify(line string) Class {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
		return ClassComment
	}
	for _, kw := range keywordPrefixes {
		if strings.HasPrefix(trimmed, kw) {
			return ClassKeyword
		}
	}
	if strings.Contains(line, "function") || strings.Contains(line, "=>") {
		return ClassFunction
	}
	if strings.ContainsAny(line, `"'`) {
		return ClassString
	}
	return ClassPlain
}

// Line is one rendered row of a frame.
type Line struct {
	Number string `json:"number"`
	Text   string `json:"text"`
	Class  Class  `json:"class"`
}

// LineNumber is the zero-padded, 1-based label for line i.
func LineNumber(i int) string {
	return fmt.Sprintf("%02d", i+1)
}

// Frame is the snapshot handed to the presentation surface on every tick.
type Frame struct {
	Lines     []Line `json:"lines"`
	LineIndex int    `json:"line_index"`
	CharIndex int    `json:"char_index"`
	Caret     bool   `json:"caret"`
	Done      bool   `json:"done"`
}

// Render builds the frame for s. Classes come from the full script line, not
// the partial reveal.
func Render(s State, script Script, cfg Config) Frame {
	f := Frame{
		Lines:     make([]Line, 0, len(s.Revealed)),
		LineIndex: s.LineIndex,
		CharIndex: s.CharIndex,
		Done:      s.Terminal(script),
	}
	for i, text := range s.Revealed {
		class := ClassPlain
		if i < len(script) {
			class = Classify(script[i])
		}
		f.Lines = append(f.Lines, Line{
			Number: LineNumber(i),
			Text:   text,
			Class:  class,
		})
	}
	f.Caret = !f.Done || cfg.CaretWhenDone
	return f
}
