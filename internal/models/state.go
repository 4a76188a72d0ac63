package models

// State is a top-level geographic area.
type State struct {
	Base
	Name string
}

func (s *State) Kind() Kind { return KindState }

func (s *State) get(name string) any {
	if name == "name" {
		return s.Name
	}
	return nil
}

func (s *State) set(name string, v any) {
	if name == "name" {
		s.Name = v.(string)
	}
}
