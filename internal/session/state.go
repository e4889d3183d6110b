// Package session holds the in-memory state of résumé review sessions: the
// active user mode, the uploaded résumés with their recorded responses, and
// the current selection.
package session

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsresume/internal/prompts"
)

var (
	ErrResumeNotFound  = errors.New("resume not found")
	ErrUnknownAction   = errors.New("unknown action")
	ErrSessionNotFound = errors.New("session not found")
	ErrStaleResume     = errors.New("resume was replaced")
)

// Resume is a snapshot of one uploaded file and everything recorded for it.
// Failures holds the reason of the last failed submission per action; a later
// successful response for the same action clears it.
type Resume struct {
	Name      string
	File      File
	Preview   string
	Responses map[prompts.Action]string
	Failures  map[prompts.Action]string
}

func (r *Resume) clone() Resume {
	return Resume{
		Name:      r.Name,
		File:      r.File,
		Preview:   r.Preview,
		Responses: maps.Clone(r.Responses),
		Failures:  maps.Clone(r.Failures),
	}
}

// State is one session. A new State starts in prompts.DefaultMode with no
// résumés and no selection. All methods are safe for concurrent use; reads
// return copies.
type State struct {
	id uuid.UUID

	mu             sync.RWMutex
	mode           prompts.Mode
	resumes        map[string]*Resume
	selected       string
	jobDescription string
}

func New() *State {
	return NewWithID(uuid.New())
}

func NewWithID(id uuid.UUID) *State {
	s := &State{id: id}
	s.reset()
	return s
}

func (s *State) ID() uuid.UUID {
	return s.id
}

// Reset returns the session to its initial state. Recorded responses and
// uploaded handles are dropped.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *State) reset() {
	s.mode = prompts.DefaultMode
	s.resumes = make(map[string]*Resume)
	s.selected = ""
	s.jobDescription = ""
}

func (s *State) Mode() prompts.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetUserMode switches the mode. Responses recorded under actions the new
// mode does not offer are kept.
func (s *State) SetUserMode(mode prompts.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", prompts.ErrInvalidMode, mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

// AddResumes inserts each file under its name with no responses, replacing
// any résumé already stored under that name. Within one call the last file of
// a given name wins. Nil handles are skipped.
func (s *State) AddResumes(files ...File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range files {
		if f == nil {
			continue
		}
		s.resumes[f.Name()] = &Resume{
			Name:      f.Name(),
			File:      f,
			Responses: make(map[prompts.Action]string),
			Failures:  make(map[prompts.Action]string),
		}
	}
}

// SetPreview attaches a preview reference to a stored résumé.
func (s *State) SetPreview(name, preview string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resumes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrResumeNotFound, name)
	}
	r.Preview = preview
	return nil
}

// SetSelectedResume selects a stored résumé. Selecting a name that is not
// stored fails and leaves the selection unchanged.
func (s *State) SetSelectedResume(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resumes[name]; !ok {
		return fmt.Errorf("%w: %q", ErrResumeNotFound, name)
	}
	s.selected = name
	return nil
}

func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// Selected returns the selected résumé name. A selection that no longer
// refers to a stored résumé reads as no selection.
func (s *State) Selected() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return "", false
	}
	if _, ok := s.resumes[s.selected]; !ok {
		return "", false
	}
	return s.selected, true
}

// AddResponse records text as the response of action for the named résumé,
// overwriting an earlier response for the same action and clearing a failure
// recorded for it. Other actions and other résumés are untouched.
func (s *State) AddResponse(name string, action prompts.Action, text string) error {
	if !prompts.Known(action) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resumes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrResumeNotFound, name)
	}
	r.Responses[action] = text
	delete(r.Failures, action)
	return nil
}

// RecordFailure marks the last submission of action for the named résumé as
// failed. Any response already recorded for the action is kept.
func (s *State) RecordFailure(name string, action prompts.Action, reason string) error {
	if !prompts.Known(action) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resumes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrResumeNotFound, name)
	}
	r.Failures[action] = reason
	return nil
}

// AddResponseFor records a response only if file is still the handle stored
// under its name. A résumé re-uploaded while an analysis was running yields
// ErrStaleResume and nothing is written.
func (s *State) AddResponseFor(file File, action prompts.Action, text string) error {
	if !prompts.Known(action) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.current(file)
	if err != nil {
		return err
	}
	r.Responses[action] = text
	delete(r.Failures, action)
	return nil
}

// RecordFailureFor is the failure counterpart of AddResponseFor.
func (s *State) RecordFailureFor(file File, action prompts.Action, reason string) error {
	if !prompts.Known(action) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.current(file)
	if err != nil {
		return err
	}
	r.Failures[action] = reason
	return nil
}

func (s *State) current(file File) (*Resume, error) {
	r, ok := s.resumes[file.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrResumeNotFound, file.Name())
	}
	if r.File != file {
		return nil, fmt.Errorf("%w: %q", ErrStaleResume, file.Name())
	}
	return r, nil
}

func (s *State) Resume(name string) (Resume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resumes[name]
	if !ok {
		return Resume{}, fmt.Errorf("%w: %q", ErrResumeNotFound, name)
	}
	return r.clone(), nil
}

// Resumes returns snapshots of every stored résumé ordered by name.
func (s *State) Resumes() []Resume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Resume, 0, len(s.resumes))
	for _, name := range slices.Sorted(maps.Keys(s.resumes)) {
		out = append(out, s.resumes[name].clone())
	}
	return out
}

// Names returns the stored résumé names in order.
func (s *State) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.resumes))
}

// ResumesWithResponse lists, in order, the résumés holding a response for action.
func (s *State) ResumesWithResponse(action prompts.Action) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, name := range slices.Sorted(maps.Keys(s.resumes)) {
		if _, ok := s.resumes[name].Responses[action]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *State) JobDescription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobDescription
}

func (s *State) SetJobDescription(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobDescription = text
}
