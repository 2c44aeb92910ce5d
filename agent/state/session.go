package state

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxShortTerm = 20

// SessionState is the per-conversation record the router threads through
// every stage. It is owned by exactly one session and is not safe for
// concurrent mutation; a multi-session deployment creates one per session.
type SessionState struct {
	SessionID    string          `json:"session_id"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`

	mode         Mode
	shortTerm    []string
	maxShortTerm int
}

// Status is the summary record behind the status command.
type Status struct {
	Mode         Mode            `json:"mode"`
	MemoryCount  int             `json:"memory_count"`
	Capabilities map[string]bool `json:"capabilities"`
}

// NewSessionState builds a fresh session in general mode with an empty
// short-term memory. maxShortTerm <= 0 selects the default cap.
func NewSessionState(maxShortTerm int, now time.Time) *SessionState {
	if maxShortTerm <= 0 {
		maxShortTerm = DefaultMaxShortTerm
	}
	return &SessionState{
		SessionID: uuid.NewString(),
		Capabilities: map[string]bool{
			"camera_available": false,
		},
		UpdatedAt:    now.UTC(),
		mode:         ModeGeneral,
		maxShortTerm: maxShortTerm,
	}
}

func (s *SessionState) Mode() Mode {
	return s.mode
}

func (s *SessionState) SetMode(m Mode, now time.Time) {
	s.mode = m
	s.UpdatedAt = now.UTC()
}

// Remember appends one entry to short-term memory, evicting the oldest
// entries once the cap is exceeded.
func (s *SessionState) Remember(entry string, now time.Time) {
	s.shortTerm = append(s.shortTerm, entry)
	if overflow := len(s.shortTerm) - s.maxShortTerm; overflow > 0 {
		s.shortTerm = append(s.shortTerm[:0:0], s.shortTerm[overflow:]...)
	}
	s.UpdatedAt = now.UTC()
}

// Memory returns the short-term entries oldest first. The slice is a copy.
func (s *SessionState) Memory() []string {
	return append([]string(nil), s.shortTerm...)
}

// Recent returns up to n of the newest memory entries, oldest first.
func (s *SessionState) Recent(n int) []string {
	if n <= 0 || len(s.shortTerm) == 0 {
		return nil
	}
	if n > len(s.shortTerm) {
		n = len(s.shortTerm)
	}
	return append([]string(nil), s.shortTerm[len(s.shortTerm)-n:]...)
}

func (s *SessionState) Status() Status {
	caps := make(map[string]bool, len(s.Capabilities))
	for k, v := range s.Capabilities {
		caps[k] = v
	}
	return Status{
		Mode:         s.mode,
		MemoryCount:  len(s.shortTerm),
		Capabilities: caps,
	}
}

// String renders the status line used by the status command.
func (st Status) String() string {
	keys := make([]string, 0, len(st.Capabilities))
	for k := range st.Capabilities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		flag := "off"
		if st.Capabilities[k] {
			flag = "on"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, flag))
	}
	return fmt.Sprintf("mode=%s; memory=%d; capabilities: %s",
		st.Mode, st.MemoryCount, strings.Join(parts, ", "))
}
