package domain

// Settings is the singleton group configuration. Mutated only through
// engine operations; every mutation is persisted before returning.
type Settings struct {
	Announcement string  `json:"announcement"`
	Hour         int     `json:"hour"`
	Minute       int     `json:"minute"`
	AdminIDs     []int64 `json:"admin_ids"`
	PollChat     int64   `json:"poll_chat"`
	LogChat      int64   `json:"log_chat"`
	LOAChat      int64   `json:"loa_chat"`
}

const DefaultAnnouncement = "Are you available for turf at 8pm?"

// DefaultSettings returns the configuration used when no settings file
// exists yet.
func DefaultSettings() Settings {
	return Settings{
		Announcement: DefaultAnnouncement,
		Hour:         20,
		Minute:       0,
	}
}

// IsAdmin reports whether the user carries the admin capability.
func (s Settings) IsAdmin(userID int64) bool {
	for _, id := range s.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
