package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jackzampolin/bindery/internal/artifact"
)

// State is the persisted state of one checkpointed stage.
type State string

const (
	StatePending State = "pending"
	StateDone    State = "done"
)

// Status is the resumable pipeline state. It is saved after every change.
type Status struct {
	states map[string]State
	Error  string
}

// NewStatus returns a status with every stage pending.
func NewStatus() *Status {
	return &Status{states: make(map[string]State)}
}

// State returns the state of stage. Unknown stages are pending.
func (s *Status) State(stage string) State {
	if st, ok := s.states[stage]; ok {
		return st
	}
	return StatePending
}

// Done reports whether stage is marked done.
func (s *Status) Done(stage string) bool {
	return s.State(stage) == StateDone
}

// Set records the state of stage.
func (s *Status) Set(stage string, st State) {
	s.states[stage] = st
}

// Completed reports whether the whole pipeline finished.
func (s *Status) Completed() bool {
	return s.Done(StageManifest)
}

// statusFile is the on-disk layout, kept as flat flags.
type statusFile struct {
	ContentGenerated bool    `json:"content_generated"`
	CoverGenerated   bool    `json:"cover_generated"`
	PDFAssembled     bool    `json:"pdf_assembled"`
	Completed        bool    `json:"completed"`
	Error            *string `json:"error"`
}

// MarshalJSON writes the flat flag layout.
func (s *Status) MarshalJSON() ([]byte, error) {
	f := statusFile{
		ContentGenerated: s.Done(StageContent),
		CoverGenerated:   s.Done(StageCover),
		PDFAssembled:     s.Done(StageAssembly),
		Completed:        s.Done(StageManifest),
	}
	if s.Error != "" {
		f.Error = &s.Error
	}
	return json.Marshal(f)
}

// UnmarshalJSON reads the flat flag layout. Missing flags are pending.
func (s *Status) UnmarshalJSON(data []byte) error {
	var f statusFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	s.states = make(map[string]State)
	for stage, done := range map[string]bool{
		StageContent:  f.ContentGenerated,
		StageCover:    f.CoverGenerated,
		StageAssembly: f.PDFAssembled,
		StageManifest: f.Completed,
	} {
		if done {
			s.states[stage] = StateDone
		} else {
			s.states[stage] = StatePending
		}
	}
	s.Error = ""
	if f.Error != nil {
		s.Error = *f.Error
	}
	return nil
}

// LoadStatus reads a status file. A missing file yields a fresh status.
func LoadStatus(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewStatus(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	s := NewStatus()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse status %s: %w", path, err)
	}
	return s, nil
}

// Save atomically writes the status to path.
func (s *Status) Save(path string) error {
	return artifact.WriteJSON(path, s)
}
