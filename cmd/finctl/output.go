package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue)
	red    = color.New(color.FgRed)
)

// printer writes colored command output to w.
type printer struct {
	w io.Writer
}

func (p printer) Header(text string) {
	line := strings.Repeat("=", 60)
	green.Fprintf(p.w, "%s\n", line)
	green.Fprintf(p.w, "%s\n", center(text, 60))
	green.Fprintf(p.w, "%s\n", line)
}

func (p printer) Success(format string, args ...any) {
	green.Fprintf(p.w, "  → %s\n", fmt.Sprintf(format, args...))
}

func (p printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, "  → %s\n", fmt.Sprintf(format, args...))
}

func (p printer) Warning(format string, args ...any) {
	yellow.Fprintf(p.w, "  ⚠ %s\n", fmt.Sprintf(format, args...))
}

func (p printer) Error(text string) {
	red.Fprintf(p.w, "Error: %s\n", text)
}

// Row prints label/value pairs with the label in blue.
func (p printer) Row(label string, value any) {
	blue.Fprintf(p.w, "  %-18s", label+":")
	fmt.Fprintf(p.w, " %v\n", value)
}

func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}
