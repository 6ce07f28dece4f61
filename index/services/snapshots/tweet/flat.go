package tweet

// FlatSnapshot is the legacy wire shape: the tweet fields at the top level
// with the author embedded under "user".
type FlatSnapshot struct {
	IDStr Uint64Str `json:"id_str"`
	User  FlatUser  `json:"user"`
}

type FlatUser struct {
	IDStr      Uint64Str `json:"id_str"`
	ScreenName string    `json:"screen_name"`
}

func (s *FlatSnapshot) ID() uint64 {
	return uint64(s.IDStr)
}

func (s *FlatSnapshot) UserID() uint64 {
	return uint64(s.User.IDStr)
}

func (s *FlatSnapshot) UserScreenName() (string, bool) {
	if s.User.ScreenName == "" {
		return "", false
	}
	return s.User.ScreenName, true
}
