package domain

import "fmt"

// Stage is the current phase of the fixed interview skeleton. The zero value
// is StageGreeting, which a session enters implicitly on creation.
type Stage int

const (
	StageGreeting Stage = iota
	StageJDSelection
	StageNamePrompt
	StagePreScreen
	StageJDQuestions
	StageClosing
	StageComplete
)

var stageNames = map[Stage]string{
	StageGreeting:    "greeting",
	StageJDSelection: "jd_selection",
	StageNamePrompt:  "name_prompt",
	StagePreScreen:   "pre_screen",
	StageJDQuestions: "jd_questions",
	StageClosing:     "closing",
	StageComplete:    "complete",
}

// String returns the wire/log name of the stage.
func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// Terminal reports whether the stage admits no further transitions.
func (s Stage) Terminal() bool { return s == StageComplete }

// ParseStage maps a stage name back to its Stage. Used when sessions are
// rehydrated from an external store.
func ParseStage(name string) (Stage, error) {
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return StageGreeting, fmt.Errorf("op=stage.parse: %w: %q", ErrInvalidArgument, name)
}
