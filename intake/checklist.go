package intake

import (
	"strings"
)

// ChecklistSeparator joins the selected options of a checklist field in the
// flat record.
const ChecklistSeparator = ", "

// Checklist is an insertion-ordered set of selected option labels.
type Checklist struct {
	items []string
}

func NewChecklist(options ...string) Checklist {
	var c Checklist
	for _, o := range options {
		c.Add(o)
	}
	return c
}

// ParseChecklist decodes a stored field. Empty segments and duplicates are
// dropped.
func ParseChecklist(encoded string) Checklist {
	if encoded == "" {
		return Checklist{}
	}
	return NewChecklist(strings.Split(encoded, ChecklistSeparator)...)
}

func (c *Checklist) Add(option string) {
	if option == "" || c.Has(option) {
		return
	}
	c.items = append(c.items, option)
}

func (c *Checklist) Remove(option string) {
	for i, it := range c.items {
		if it == option {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return
		}
	}
}

// Toggle flips the selection of option, the way a checkbox does.
func (c *Checklist) Toggle(option string) {
	if c.Has(option) {
		c.Remove(option)
		return
	}
	c.Add(option)
}

func (c Checklist) Has(option string) bool {
	for _, it := range c.items {
		if it == option {
			return true
		}
	}
	return false
}

func (c Checklist) Len() int {
	return len(c.items)
}

// Items returns the selection in insertion order.
func (c Checklist) Items() []string {
	return append([]string(nil), c.items...)
}

func (c Checklist) String() string {
	return strings.Join(c.items, ChecklistSeparator)
}

// SetChecklist stores c under key using the flat encoding.
func (s *Store) SetChecklist(key string, c Checklist) {
	s.set(key, c.String())
}

func (s *Store) Checklist(key string) Checklist {
	return ParseChecklist(s.Get(key))
}
