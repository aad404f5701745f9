package smf

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		kind   ErrorKind
		policy Policy
		want   Action
	}{
		{KindInvalidChannelEventParameterValue, SnapToLimits, Clamp},
		{KindInvalidChannelEventParameterValue, ReadValid, Mask},
		{KindInvalidMetaEventParameterValue, ReadValid, Fail},
		{KindInvalidChunkSize, Ignore, Accept},
		{KindInvalidChunkSize, SnapToLimits, Fail},
		{KindUnknownChunkID, Skip, Drop},
		{KindUnexpectedRunningStatus, Ignore, Fail},
		{KindUnknownChannelEvent, Ignore, Fail},
		{KindNotEnoughBytes, Abort, Fail},
	}
	for _, tt := range tests {
		if got := Decide(tt.kind, tt.policy); got != tt.want {
			t.Errorf("Decide(%s, %s): expected %d, got %d", tt.kind, tt.policy, tt.want, got)
		}
	}
}

func TestValidateSettings(t *testing.T) {
	var zero ReadSettings
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero settings should be valid: %v", err)
	}
	s := DefaultReadSettings()
	s.InvalidChunkSize = Skip
	if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}
	s = DefaultReadSettings()
	s.SilentNoteOn = Ignore
	if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}
}

func TestSettingsJSON(t *testing.T) {
	s := DefaultReadSettings()
	s.NotEnoughBytes = Ignore
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, want := range []string{`"unknownChunkId":"read-as-unknown"`, `"notEnoughBytes":"ignore"`, `"silentNoteOn":"note-on"`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("expected %s in %s", want, b)
		}
	}

	var w WriteSettings
	if err := json.Unmarshal([]byte(`{"compression":["use-running-status","delete-unknown-chunks"]}`), &w); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if w.Compression != UseRunningStatus|DeleteUnknownChunks {
		t.Fatalf("expected two policies, got %s", w.Compression)
	}
	if err := json.Unmarshal([]byte(`{"compression":["shrink"]}`), &w); err == nil {
		t.Fatal("expected an error for an unknown policy name")
	}
	var p Policy
	if err := p.UnmarshalText([]byte("snap")); err == nil {
		t.Fatal("expected an error for an unknown policy")
	}
}
