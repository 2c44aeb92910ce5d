package state

import "strings"

// Mode selects the assistant's conversational posture. It gates the
// mode-specific safety checks and shapes the generation prompt.
type Mode string

const (
	ModeGeneral Mode = "general"
	ModeTutor   Mode = "tutor"
	ModeFocus   Mode = "focus"
	ModeHealth  Mode = "health"
	ModeMood    Mode = "mood"
)

// Modes lists every recognized mode in its display order.
func Modes() []Mode {
	return []Mode{ModeGeneral, ModeTutor, ModeFocus, ModeHealth, ModeMood}
}

// ParseMode resolves a user-supplied mode name. ok is false for unknown
// names; callers surface the valid set themselves.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeGeneral:
		return ModeGeneral, true
	case ModeTutor:
		return ModeTutor, true
	case ModeFocus:
		return ModeFocus, true
	case ModeHealth:
		return ModeHealth, true
	case ModeMood:
		return ModeMood, true
	default:
		return "", false
	}
}

// ModeHint steers generation tone without changing routing.
type ModeHint struct {
	Tone      string
	Verbosity string
}

var modeHints = map[Mode]ModeHint{
	ModeGeneral: {Tone: "neutral", Verbosity: "balanced"},
	ModeTutor:   {Tone: "patient and educational", Verbosity: "detailed"},
	ModeFocus:   {Tone: "direct and concise", Verbosity: "brief"},
	ModeHealth:  {Tone: "careful and non-diagnostic", Verbosity: "balanced"},
	ModeMood:    {Tone: "supportive and warm", Verbosity: "balanced"},
}

// Hint returns the generation hint for m, defaulting to the general hint
// for anything unrecognized.
func (m Mode) Hint() ModeHint {
	if h, ok := modeHints[m]; ok {
		return h
	}
	return modeHints[ModeGeneral]
}

func (m Mode) String() string {
	return string(m)
}
