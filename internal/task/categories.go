package task

import "strings"

// CategorySet is a grow-only set of category names that iterates in
// insertion order. Blank names are ignored. The zero value is an empty set
// ready to use.
type CategorySet struct {
	order []string
	seen  map[string]struct{}
}

func NewCategorySet(names ...string) *CategorySet {
	s := &CategorySet{}
	s.Add(names...)
	return s
}

// Add appends the names not yet known and returns how many were new.
func (s *CategorySet) Add(names ...string) int {
	added := 0
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := s.seen[name]; ok {
			continue
		}
		if s.seen == nil {
			s.seen = make(map[string]struct{})
		}
		s.seen[name] = struct{}{}
		s.order = append(s.order, name)
		added++
	}
	return added
}

func (s *CategorySet) Has(name string) bool {
	_, ok := s.seen[name]
	return ok
}

func (s *CategorySet) Len() int {
	return len(s.order)
}

// Names returns a copy of the names in insertion order.
func (s *CategorySet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
