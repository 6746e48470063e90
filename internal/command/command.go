package command

import (
	"fmt"
	"math"
	"strings"

	"splice/internal/services"
)

// Action is what a command does to its slot.
type Action string

const (
	ActionReplace   Action = "replace"
	ActionTranslate Action = "translate"
)

// MediaType is the kind of slot a command targets.
type MediaType string

const (
	TypeText  MediaType = "text"
	TypeVideo MediaType = "video"
	TypeImage MediaType = "image"
	TypeAudio MediaType = "audio"
)

// Command is one edit request. Time is in seconds from the start of the
// sequence; Value is the new text, asset id or target language.
type Command struct {
	Action Action    `json:"action"`
	Type   MediaType `json:"type"`
	Time   float64   `json:"time"`
	Value  string    `json:"value"`
}

// String renders the command for logs.
func (c Command) String() string {
	return fmt.Sprintf("%s %s at %gs", c.Action, c.Type, c.Time)
}

func (c Command) validate() error {
	if math.IsNaN(c.Time) || math.IsInf(c.Time, 0) || c.Time < 0 {
		return services.Wrap(services.ErrValidation, "command", "validate", fmt.Sprintf("invalid time %v", c.Time), nil)
	}
	if c.Action == ActionReplace && c.Type != TypeText && strings.TrimSpace(c.Value) == "" {
		return services.Wrap(services.ErrValidation, "command", "validate", "asset id required", nil)
	}
	if c.Action == ActionTranslate && strings.TrimSpace(c.Value) == "" {
		return services.Wrap(services.ErrValidation, "command", "validate", "target language required", nil)
	}
	return nil
}
