package models

// Review is a User's text about a Place.
type Review struct {
	Base
	PlaceID string
	UserID  string
	Text    string
}

func (r *Review) Kind() Kind { return KindReview }

func (r *Review) get(name string) any {
	switch name {
	case "place_id":
		return r.PlaceID
	case "user_id":
		return r.UserID
	case "text":
		return r.Text
	}
	return nil
}

func (r *Review) set(name string, v any) {
	switch name {
	case "place_id":
		r.PlaceID = v.(string)
	case "user_id":
		r.UserID = v.(string)
	case "text":
		r.Text = v.(string)
	}
}
