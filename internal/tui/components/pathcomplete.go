package components

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PathCompleter expands a partial path on repeated Tab presses: the first
// press extends the input to the longest shared prefix of the candidates,
// later presses cycle through them. Hidden entries are offered only when
// the typed prefix starts with a dot.
type PathCompleter struct {
	dirsOnly bool
	parent   string
	matches  []string
	next     int
}

func NewPathCompleter(dirsOnly bool) *PathCompleter {
	return &PathCompleter{dirsOnly: dirsOnly}
}

// Next returns the completion for input, advancing the cycle when the
// previous call completed the same directory.
func (c *PathCompleter) Next(input string) string {
	parent, prefix := splitPath(input)

	if c.matches == nil || parent != c.parent {
		c.parent = parent
		c.matches = c.candidates(parent, prefix)
		c.next = 0
		if len(c.matches) == 0 {
			return input
		}
		if len(c.matches) > 1 {
			if common := commonPrefix(c.matches); len(common) > len(prefix) {
				return filepath.Join(parent, common)
			}
		}
	}
	if len(c.matches) == 0 {
		return input
	}

	name := c.matches[c.next%len(c.matches)]
	c.next++
	return c.join(parent, name)
}

// Reset forgets the current cycle. Fields call it on every non-Tab key.
func (c *PathCompleter) Reset() {
	c.matches = nil
	c.parent = ""
	c.next = 0
}

func (c *PathCompleter) candidates(parent, prefix string) []string {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return []string{}
	}
	lower := strings.ToLower(prefix)
	out := []string{}
	for _, e := range entries {
		name := e.Name()
		if c.dirsOnly && !e.IsDir() {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), lower) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (c *PathCompleter) join(parent, name string) string {
	p := filepath.Join(parent, name)
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		p += string(filepath.Separator)
	}
	return p
}

// splitPath separates the directory to list from the name prefix typed so far.
//
//	""          -> (".", "")
//	"data/"     -> ("data", "")
//	"data/cl"   -> ("data", "cl")
//	"cl"        -> (".", "cl")
func splitPath(input string) (parent, prefix string) {
	if input == "" || input == "." {
		return ".", ""
	}
	if strings.HasSuffix(input, "/") || strings.HasSuffix(input, string(filepath.Separator)) {
		trimmed := strings.TrimRight(input, `/\`)
		if trimmed == "" {
			return string(filepath.Separator), ""
		}
		return trimmed, ""
	}
	return filepath.Dir(input), filepath.Base(input)
}

// commonPrefix compares case-insensitively and returns the prefix as spelled by the first name.
func commonPrefix(names []string) string {
	first := names[0]
	n := len(first)
	for _, name := range names[1:] {
		i := 0
		for i < n && i < len(name) && strings.EqualFold(first[i:i+1], name[i:i+1]) {
			i++
		}
		n = i
	}
	return first[:n]
}
