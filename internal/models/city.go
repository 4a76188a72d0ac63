package models

// City belongs to a State.
type City struct {
	Base
	StateID string
	Name    string
}

func (c *City) Kind() Kind { return KindCity }

func (c *City) get(name string) any {
	switch name {
	case "state_id":
		return c.StateID
	case "name":
		return c.Name
	}
	return nil
}

func (c *City) set(name string, v any) {
	switch name {
	case "state_id":
		c.StateID = v.(string)
	case "name":
		c.Name = v.(string)
	}
}
