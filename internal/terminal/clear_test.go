package terminal

import (
	"bytes"
	"strings"
	"testing"
)

func TestLinesFor(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		prompts []string
		want    int
	}{
		{name: "single short prompt", width: 80, prompts: []string{"Email: a@example.com"}, want: 2},
		{name: "two prompts", width: 80, prompts: []string{"Email: a@example.com", "Password: "}, want: 3},
		{name: "wrapping prompt", width: 10, prompts: []string{strings.Repeat("x", 25)}, want: 4},
		{name: "empty prompt still uses a row", width: 80, prompts: []string{""}, want: 2},
		{name: "unknown width", width: 0, prompts: []string{"x"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinesFor(tt.width, tt.prompts...); got != tt.want {
				t.Errorf("LinesFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClearLines(t *testing.T) {
	var buf bytes.Buffer
	ClearLines(&buf, 2)
	if got, want := buf.String(), "\r\x1b[2K\x1b[1A\r\x1b[2K"; got != want {
		t.Errorf("ClearLines() wrote %q, want %q", got, want)
	}
}
