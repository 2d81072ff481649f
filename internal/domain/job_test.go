package domain

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusGenerating, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusPending, JobStatusFailed, false},
		{JobStatusGenerating, JobStatusCompleted, true},
		{JobStatusGenerating, JobStatusFailed, true},
		{JobStatusGenerating, JobStatusPending, false},
		{JobStatusFailed, JobStatusGenerating, true},
		{JobStatusFailed, JobStatusCompleted, false},
		{JobStatusCompleted, JobStatusGenerating, true},
		{JobStatusCompleted, JobStatusPending, false},
		{JobStatus("bogus"), JobStatusGenerating, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStickerJobInvariants(t *testing.T) {
	tests := []struct {
		name string
		job  StickerJob
		ok   bool
	}{
		{"pending", StickerJob{Status: JobStatusPending}, true},
		{"completed with image", StickerJob{Status: JobStatusCompleted, FinalImage: "data:image/png;base64,AA=="}, true},
		{"completed without image", StickerJob{Status: JobStatusCompleted}, false},
		{"generating with image", StickerJob{Status: JobStatusGenerating, FinalImage: "x"}, false},
		{"failed with message", StickerJob{Status: JobStatusFailed, ErrorMessage: "boom"}, true},
		{"pending with message", StickerJob{Status: JobStatusPending, ErrorMessage: "boom"}, false},
		{"unknown status", StickerJob{Status: "nope"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.job.CheckInvariants()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestTextResponseErrorTruncates(t *testing.T) {
	long := make([]rune, 400)
	for i := range long {
		long[i] = 'a'
	}
	err := NewTextResponseError(string(long))
	if got := len([]rune(err.Text)); got != MaxResponseTextLen {
		t.Fatalf("text length = %d, want %d", got, MaxResponseTextLen)
	}
	if !errors.Is(err, ErrUnexpectedText) {
		t.Fatal("expected error to unwrap to ErrUnexpectedText")
	}
	if Reason(err) != "unexpected_text" {
		t.Fatalf("Reason = %q", Reason(err))
	}
}

func TestReason(t *testing.T) {
	if Reason(nil) != "" {
		t.Fatal("nil error should have empty reason")
	}
	if got := Reason(errors.New("dial tcp: refused")); got != "generation" {
		t.Fatalf("Reason = %q, want generation", got)
	}
	if got := Reason(ErrDecode); got != "decode" {
		t.Fatalf("Reason = %q, want decode", got)
	}
}
