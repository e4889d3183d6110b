// Package prompts holds the fixed catalog of analysis actions offered to each
// user mode. The catalog is embedded at compile time and never changes while
// the process runs.
package prompts

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// Mode selects which actions a session is offered.
type Mode string

const (
	ModeRecruiter Mode = "Recruiter"
	ModeStudent   Mode = "Student"
)

// DefaultMode is the mode of a freshly created session.
const DefaultMode = ModeRecruiter

var (
	ErrInvalidMode      = errors.New("invalid user mode")
	ErrActionNotOffered = errors.New("action not offered")
)

// Modes returns every valid mode in display order.
func Modes() []Mode {
	return []Mode{ModeRecruiter, ModeStudent}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeRecruiter || m == ModeStudent
}

// ParseMode accepts a mode name in any letter case.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Action names one analysis a résumé can be put through.
type Action string

// Prompt pairs an action with the instruction text sent to the analysis service.
type Prompt struct {
	Action   Action `json:"action"`
	Template string `json:"template"`
}

//go:embed catalog.json
var catalogJSON []byte

var (
	catalog     map[Mode][]Prompt
	catalogOnce sync.Once
)

func load() map[Mode][]Prompt {
	catalogOnce.Do(func() {
		var parsed map[Mode][]Prompt
		if err := json.Unmarshal(catalogJSON, &parsed); err != nil {
			panic(fmt.Sprintf("failed to parse embedded prompt catalog: %v", err))
		}
		catalog = parsed
	})
	return catalog
}

// For returns the ordered prompts offered in mode. The returned slice is a
// fresh copy; an invalid mode yields nil.
func For(mode Mode) []Prompt {
	entries := load()[mode]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Prompt, len(entries))
	copy(out, entries)
	return out
}

// Actions returns the action names offered in mode, in catalog order.
func Actions(mode Mode) []Action {
	entries := load()[mode]
	out := make([]Action, 0, len(entries))
	for _, p := range entries {
		out = append(out, p.Action)
	}
	return out
}

// NotOfferedError is returned by Lookup when mode has no action by that name.
// Suggestion holds the closest offered action, if any is close enough.
type NotOfferedError struct {
	Mode       Mode
	Action     string
	Suggestion Action
}

func (e *NotOfferedError) Error() string {
	msg := fmt.Sprintf("action %q not offered in %s mode", e.Action, e.Mode)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *NotOfferedError) Is(target error) bool {
	return target == ErrActionNotOffered
}

// Lookup finds the prompt for name among the actions offered in mode.
func Lookup(mode Mode, name string) (Prompt, error) {
	if !mode.Valid() {
		return Prompt{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	trimmed := strings.TrimSpace(name)
	for _, p := range load()[mode] {
		if string(p.Action) == trimmed {
			return p, nil
		}
	}
	return Prompt{}, &NotOfferedError{
		Mode:       mode,
		Action:     name,
		Suggestion: closest(trimmed, Actions(mode)),
	}
}

// Known reports whether any mode offers action.
func Known(action Action) bool {
	for _, m := range Modes() {
		for _, p := range load()[m] {
			if p.Action == action {
				return true
			}
		}
	}
	return false
}

// closest returns the candidate with the smallest edit distance to name, or
// "" when none is within a third of the name's length.
func closest(name string, candidates []Action) Action {
	if name == "" {
		return ""
	}
	needle := strings.ToLower(name)
	best := Action("")
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(string(c)))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := max(len(needle)/3, 2)
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
