// Package terminal provides prompts for credentials and helpers for tidying
// the terminal once they have been answered.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Width returns the width of the stdout terminal, or 80 when unknown.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// LinesFor returns how many terminal rows the answered prompts occupy at the
// given width, counting the row the cursor moved to after the final Enter.
func LinesFor(width int, prompts ...string) int {
	if width <= 0 {
		width = 80
	}
	lines := 0
	for _, p := range prompts {
		n := (len(p) + width - 1) / width
		if n < 1 {
			n = 1
		}
		lines += n
	}
	return lines + 1
}

// ClearLines moves up and clears n rows on w, leaving the cursor at the
// start of the topmost cleared row.
func ClearLines(w io.Writer, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K") // Move to start and clear entire line
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A") // Move up one line
		}
	}
}
