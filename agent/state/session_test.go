package state

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewSessionStateDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st := NewSessionState(0, now)

	if st.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if st.Mode() != ModeGeneral {
		t.Fatalf("Mode() = %s, want %s", st.Mode(), ModeGeneral)
	}
	if got := st.Status().MemoryCount; got != 0 {
		t.Fatalf("MemoryCount = %d, want 0", got)
	}
	if _, ok := st.Capabilities["camera_available"]; !ok {
		t.Fatal("expected camera_available capability flag")
	}
}

func TestRememberEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewSessionState(3, now)
	for i := 0; i < 5; i++ {
		st.Remember(fmt.Sprintf("entry-%d", i), now)
	}

	got := st.Memory()
	want := []string{"entry-2", "entry-3", "entry-4"}
	if len(got) != len(want) {
		t.Fatalf("Memory() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Memory()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMemoryReturnsCopy(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewSessionState(5, now)
	st.Remember("original", now)

	got := st.Memory()
	got[0] = "mutated"

	if st.Memory()[0] != "original" {
		t.Fatal("Memory() must return a copy")
	}
}

func TestRecentWindow(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewSessionState(10, now)
	for i := 0; i < 4; i++ {
		st.Remember(fmt.Sprintf("entry-%d", i), now)
	}

	got := st.Recent(2)
	if len(got) != 2 || got[0] != "entry-2" || got[1] != "entry-3" {
		t.Fatalf("Recent(2) = %v", got)
	}
	if got := st.Recent(0); got != nil {
		t.Fatalf("Recent(0) = %v, want nil", got)
	}
	if got := st.Recent(99); len(got) != 4 {
		t.Fatalf("Recent(99) len = %d, want 4", len(got))
	}
}

func TestSetModeReflectedInStatus(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewSessionState(5, now)
	st.SetMode(ModeTutor, now)

	status := st.Status()
	if status.Mode != ModeTutor {
		t.Fatalf("Status().Mode = %s, want %s", status.Mode, ModeTutor)
	}
	if !strings.Contains(status.String(), "mode=tutor") {
		t.Fatalf("Status().String() = %q, want it to contain mode=tutor", status.String())
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		want   Mode
		wantOK bool
	}{
		{"general", ModeGeneral, true},
		{"  TUTOR ", ModeTutor, true},
		{"focus", ModeFocus, true},
		{"health", ModeHealth, true},
		{"mood", ModeMood, true},
		{"wizard", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseMode(tc.input)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("ParseMode(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestModeHintFallsBackToGeneral(t *testing.T) {
	t.Parallel()

	if Mode("nonsense").Hint() != ModeGeneral.Hint() {
		t.Fatal("unknown mode should use the general hint")
	}
	if ModeFocus.Hint().Verbosity != "brief" {
		t.Fatalf("focus verbosity = %q, want brief", ModeFocus.Hint().Verbosity)
	}
}
