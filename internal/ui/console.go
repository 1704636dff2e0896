package ui

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console is an io.Writer that colors text log lines by severity before
// passing them on. Each Write is emitted as one block so lines from
// concurrent device logs don't interleave.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole wraps out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Write styles every complete line in p. A trailing partial line is
// written unstyled.
func (c *Console) Write(p []byte) (int, error) {
	var b bytes.Buffer
	rest := p
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			b.Write(rest)
			break
		}
		b.WriteString(StyleLine(string(rest[:i])))
		b.WriteByte('\n')
		rest = rest[i+1:]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.out.Write(b.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

var (
	criticalLine   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	errorLine      = lipgloss.NewStyle().Foreground(ColorError)
	warningLine    = lipgloss.NewStyle().Foreground(ColorWarning)
	normalLine     = lipgloss.NewStyle().Foreground(ColorSuccess)
	transitionLine = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	headingLine    = lipgloss.NewStyle().Bold(true)
	mutedLine      = lipgloss.NewStyle().Foreground(ColorMuted)
)

// StyleLine picks a style for one text log line from its content.
func StyleLine(line string) string {
	body := line
	// Skip the "[timestamp] [device] " prefix when matching.
	if i := strings.Index(line, "] ["); i >= 0 {
		if j := strings.Index(line[i+3:], "] "); j >= 0 {
			body = line[i+3+j+2:]
		}
	}

	switch {
	case strings.HasPrefix(body, "TRANSITION:"):
		return transitionLine.Render(line)
	case strings.Contains(body, "CRITICAL") || strings.HasPrefix(body, "AUTH FAILURE"):
		return criticalLine.Render(line)
	case strings.HasPrefix(body, "ERROR") || strings.Contains(body, "[SUSPECT]"):
		return errorLine.Render(line)
	case strings.Contains(body, "WARNING") || strings.HasPrefix(body, SymbolWarning) || strings.HasPrefix(body, "Connection failure"):
		return warningLine.Render(line)
	case strings.Contains(body, "NORMAL") || strings.HasPrefix(body, SymbolSuccess):
		return normalLine.Render(line)
	case strings.HasPrefix(body, "SNAPSHOT #") || strings.HasPrefix(body, "SYSTEM SUMMARY"):
		return headingLine.Render(line)
	case strings.HasPrefix(body, "===") || strings.HasPrefix(body, "    ---"):
		return mutedLine.Render(line)
	default:
		return line
	}
}
