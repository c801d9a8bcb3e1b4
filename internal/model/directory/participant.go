package directory

// Participant is one resolved entry in the people directory. Records are
// immutable for the lifetime of a chat session; the directory owns them.
type Participant struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	PhotoURL       string   `json:"photo_url,omitempty"`
	Organization   string   `json:"organization,omitempty"`
	Role           string   `json:"role,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	IsPhonePrivate bool     `json:"is_phone_private,omitempty"`
}

// Redacted returns a copy safe to hand to other users, honoring the
// record's privacy flags.
func (p Participant) Redacted() Participant {
	if p.IsPhonePrivate {
		p.Phone = ""
	}
	return p
}
