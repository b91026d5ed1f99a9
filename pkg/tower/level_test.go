package tower

import (
	"errors"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{in: "0", want: LevelSilent},
		{in: "2", want: LevelPayload},
		{in: "-1", want: ResetLevel},
		{in: "silent", want: LevelSilent},
		{in: "dispatch", want: LevelDispatch},
		{in: "payload", want: LevelPayload},
		{in: "reset", want: ResetLevel},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				var levelErr *LevelError
				if !errors.As(err, &levelErr) {
					t.Fatalf("expected *LevelError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		ResetLevel:    "reset",
		LevelSilent:   "silent",
		-3:            "silent",
		LevelDispatch: "dispatch",
		LevelPayload:  "payload",
		5:             "level(5)",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", int(level), got, want)
		}
	}
}
