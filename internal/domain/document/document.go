package document

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Line is a single key=value entry inside a section
type Line struct {
	Key   string
	Value string
}

// Section is a named, ordered group of key=value lines
type Section struct {
	Name  string
	Lines []Line
}

// Get returns the value for a key within the section
func (s *Section) Get(key string) (string, bool) {
	for _, l := range s.Lines {
		if l.Key == key {
			return l.Value, true
		}
	}
	return "", false
}

func (s *Section) add(key, value string) {
	s.Lines = append(s.Lines, Line{Key: key, Value: value})
}

// ComposedDocument is the canonical text artifact handed to the external
// signing/transmission toolkit. It is immutable once produced; composing
// the same request again yields a new identifier, code and timestamp but
// identical business content.
type ComposedDocument struct {
	ID        uuid.UUID
	Code      int64
	EmittedAt time.Time
	Sections  []Section
}

// Section returns the named section, or nil when absent
func (d *ComposedDocument) Section(name string) *Section {
	for i := range d.Sections {
		if d.Sections[i].Name == name {
			return &d.Sections[i]
		}
	}
	return nil
}

// SectionNames returns every section name in document order
func (d *ComposedDocument) SectionNames() []string {
	names := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		names[i] = s.Name
	}
	return names
}

// Render produces the canonical text: each block is a bracketed header
// on its own line followed by key=value lines, blocks separated by one
// blank line.
func (d *ComposedDocument) Render() string {
	var b strings.Builder
	for i, section := range d.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[")
		b.WriteString(section.Name)
		b.WriteString("]\n")
		for _, line := range section.Lines {
			b.WriteString(line.Key)
			b.WriteString("=")
			b.WriteString(line.Value)
			b.WriteString("\n")
		}
	}
	return b.String()
}
