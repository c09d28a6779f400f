// Package hostsfile edits the OS static name-resolution table one whole
// line at a time. Unrelated lines are never reformatted or reordered.
package hostsfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LoopbackAddr is the address redirect entries point at.
const LoopbackAddr = "127.0.0.1"

// Entry is one line of the hosts table. IP and Hostname are populated only
// when the line parses as a mapping; Comment marks `#`-prefixed lines.
type Entry struct {
	Raw      string
	IP       string
	Hostname string
	Comment  bool
}

// Table is an immutable snapshot of the hosts file. It is re-read from disk
// for every operation and never cached across calls.
type Table struct {
	lines []string
}

// Parse builds a Table from raw file content, preserving every line verbatim.
func Parse(content string) Table {
	if content == "" {
		return Table{}
	}
	lines := strings.Split(content, "\n")
	// A trailing newline produces one empty trailing element, which is the
	// file terminator rather than a line of its own.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return Table{lines: lines}
}

// Load reads the hosts table at path.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("hosts read failed (%s): %w", path, err)
	}
	return Parse(string(data)), nil
}

// Lines returns a copy of the table's lines.
func (t Table) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// Entries returns the parsed view of every line.
func (t Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.lines))
	for _, line := range t.lines {
		out = append(out, parseEntry(line))
	}
	return out
}

func parseEntry(line string) Entry {
	e := Entry{Raw: line}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		e.Comment = true
		return e
	}
	fields := strings.Fields(trimmed)
	if len(fields) >= 2 {
		e.IP = fields[0]
		e.Hostname = fields[1]
	}
	return e
}

// RedirectLine returns the canonical redirect entry for domain.
func RedirectLine(domain string) string {
	return LoopbackAddr + " " + domain
}

// HasRedirect reports whether any non-comment line mentions domain. This is
// the loose presence check used for status reporting only.
func (t Table) HasRedirect(domain string) bool {
	for _, line := range t.lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.Contains(trimmed, domain) {
			return true
		}
	}
	return false
}

// HasExactRedirect reports whether some line, after trimming, is exactly the
// canonical `127.0.0.1 <domain>` entry. This is the strict check that gates
// insertion, so near-duplicate variants still converge to the canonical form.
func (t Table) HasExactRedirect(domain string) bool {
	entry := RedirectLine(domain)
	for _, line := range t.lines {
		if strings.TrimSpace(line) == entry {
			return true
		}
	}
	return false
}

// AddRedirect appends the canonical redirect entry unless it is already
// present verbatim. Trailing whitespace-only lines are trimmed before the
// append; all other lines are preserved as-is.
func (t Table) AddRedirect(domain string) (Table, bool) {
	if t.HasExactRedirect(domain) {
		return t, false
	}
	end := len(t.lines)
	for end > 0 && strings.TrimSpace(t.lines[end-1]) == "" {
		end--
	}
	lines := make([]string, 0, end+1)
	lines = append(lines, t.lines[:end]...)
	lines = append(lines, RedirectLine(domain))
	return Table{lines: lines}, true
}

// RemoveRedirect drops every line mentioning domain, comment lines included.
// Conservative cleanup: a commented-out redirect left behind would be
// misleading once the real entry is gone.
func (t Table) RemoveRedirect(domain string) (Table, bool) {
	lines := make([]string, 0, len(t.lines))
	removed := false
	for _, line := range t.lines {
		if strings.Contains(line, domain) {
			removed = true
			continue
		}
		lines = append(lines, line)
	}
	return Table{lines: lines}, removed
}

// Render serializes the table with newline separators and exactly one
// trailing newline. An empty table renders as empty content.
func (t Table) Render() string {
	if len(t.lines) == 0 {
		return ""
	}
	return strings.Join(t.lines, "\n") + "\n"
}

// Write replaces the hosts table at path. The content lands in a temporary
// file in the same directory first and is renamed over the target, so a
// failed write never leaves the hosts file empty or truncated.
func Write(path string, t Table) error {
	dir := filepath.Dir(path)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, ".hosts-*")
	if err != nil {
		return fmt.Errorf("hosts write failed (%s): %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(t.Render()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("hosts write failed (%s): %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("hosts write failed (%s): %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("hosts write failed (%s): %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("hosts write failed (%s): %w", path, err)
	}
	return nil
}

// DefaultPath returns the well-known hosts file location for this OS.
func DefaultPath() string {
	if runtime.GOOS == "windows" {
		return `C:\Windows\System32\drivers\etc\hosts`
	}
	return "/etc/hosts"
}
