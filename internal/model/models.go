// Package model defines the data models for the arcade account, economy and highscore layer.
package model

import "time"

// User represents a registered player account.
// Records are keyed by Username; the match is case-sensitive.
type User struct {
	Username       string    `json:"username"`
	Password       string    `json:"password"`
	Coins          int64     `json:"coins"`
	Cosmetics      []string  `json:"cosmetics"`
	ActiveCosmetic *string   `json:"activeCosmetic"`
	CreatedAt      time.Time `json:"createdAt"`
	LastLogin      time.Time `json:"lastLogin"`
}

// HasCosmetic reports whether the user owns the given cosmetic.
func (u *User) HasCosmetic(cosmeticID string) bool {
	for _, c := range u.Cosmetics {
		if c == cosmeticID {
			return true
		}
	}
	return false
}

// PublicUser is the user projection exposed over the API (no credential).
type PublicUser struct {
	Username       string    `json:"username"`
	Coins          int64     `json:"coins"`
	Cosmetics      []string  `json:"cosmetics"`
	ActiveCosmetic *string   `json:"activeCosmetic"`
	CreatedAt      time.Time `json:"createdAt"`
	LastLogin      time.Time `json:"lastLogin"`
}

// Public strips the credential from a user record.
func (u *User) Public() PublicUser {
	return PublicUser{
		Username:       u.Username,
		Coins:          u.Coins,
		Cosmetics:      u.Cosmetics,
		ActiveCosmetic: u.ActiveCosmetic,
		CreatedAt:      u.CreatedAt,
		LastLogin:      u.LastLogin,
	}
}

// SkinData is the per-user extended game data, persisted separately from User.
type SkinData struct {
	OwnedSkins  map[string][]string `json:"ownedSkins"`
	ActiveSkins map[string]string   `json:"activeSkins"`
}

// UserData combines the coin balance with the skin data of a user.
type UserData struct {
	Coins       int64               `json:"coins"`
	OwnedSkins  map[string][]string `json:"ownedSkins"`
	ActiveSkins map[string]string   `json:"activeSkins"`
}

// HighscoreEntry is one local highscore row of a game.
type HighscoreEntry struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// GlobalHighscore is a highscore row kept by the global highscore server.
type GlobalHighscore struct {
	Username  string    `json:"username"`
	Score     int64     `json:"score"`
	Game      string    `json:"game"`
	Timestamp time.Time `json:"timestamp"`
}

// Mission is a daily mission template shown to a player.
type Mission struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Progress    int64  `json:"progress"`
	Target      int64  `json:"target"`
	Reward      int64  `json:"reward"`
	Completed   bool   `json:"completed"`
}

// CoinEvent is broadcast whenever a user's coin balance changes.
type CoinEvent struct {
	Username string `json:"username"`
	Coins    int64  `json:"coins"`
}

// Style is the presentation attached to a username by its active cosmetic.
// Exactly one of Color or Gradient is set.
type Style struct {
	Color    string `json:"color,omitempty"`
	Gradient string `json:"gradient,omitempty"`
}

// LeaderboardEntry is one ranked, styled row of a game leaderboard.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
	Style    *Style `json:"style,omitempty"`
}

// TrackComparison reports a user's best score on the local and remote highscore tracks.
// A nil score means the track has no entry for the user.
type TrackComparison struct {
	Username    string `json:"username"`
	LocalScore  *int64 `json:"localScore"`
	RemoteScore *int64 `json:"remoteScore"`
	InSync      bool   `json:"inSync"`
}

// TrackReport compares both highscore tracks of one game.
// RemoteAvailable is false when the remote track could not be read; every
// RemoteScore is nil in that case.
type TrackReport struct {
	Game            string            `json:"game"`
	RemoteAvailable bool              `json:"remoteAvailable"`
	Entries         []TrackComparison `json:"entries"`
}
