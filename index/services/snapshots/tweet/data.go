package tweet

// DataSnapshot is the API v2 wire shape: the tweet itself under "data" plus
// an "includes" section carrying referenced users.
type DataSnapshot struct {
	Data     Data       `json:"data"`
	Includes Includes   `json:"includes"`
	Errors   []APIError `json:"errors,omitempty"`
}

type Data struct {
	ID       Uint64Str `json:"id"`
	AuthorID Uint64Str `json:"author_id"`
}

type Includes struct {
	Tweets []IncludedTweet `json:"tweets,omitempty"`
	Users  []User          `json:"users"`
	Media  []Media         `json:"media,omitempty"`
	Polls  []Poll          `json:"polls,omitempty"`
	Places []Place         `json:"places,omitempty"`
}

type User struct {
	ID       Uint64Str `json:"id"`
	Username string    `json:"username"`
}

// The remaining includes sections only matter for their presence.
type (
	IncludedTweet struct{}
	Media         struct{}
	Poll          struct{}
	Place         struct{}
	APIError      struct{}
)

// LookupUser finds a user in the includes section by ID.
func (s *DataSnapshot) LookupUser(id uint64) (*User, bool) {
	for i := range s.Includes.Users {
		if uint64(s.Includes.Users[i].ID) == id {
			return &s.Includes.Users[i], true
		}
	}
	return nil, false
}

func (s *DataSnapshot) ID() uint64 {
	return uint64(s.Data.ID)
}

func (s *DataSnapshot) UserID() uint64 {
	return uint64(s.Data.AuthorID)
}

func (s *DataSnapshot) UserScreenName() (string, bool) {
	user, ok := s.LookupUser(s.UserID())
	if !ok {
		return "", false
	}
	return user.Username, true
}
