// Package service provides the account, economy, highscore, mission and
// leaderboard operations of the arcade.
package service

import (
	"errors"

	"github.com/Jay160412/jay-website/internal/repository"
)

// Service errors. Validation errors carry the message shown to players.
var (
	ErrUserNotFound       = repository.ErrUserNotFound
	ErrMissingFields      = errors.New("please fill in all fields")
	ErrUsernameTaken      = errors.New("this username is already taken")
	ErrInvalidCredentials = errors.New("wrong username or password")
	ErrCosmeticNotFound   = errors.New("cosmetic not found")
	ErrSkinNotFound       = errors.New("skin not found")
	ErrAlreadyOwned       = errors.New("item already owned")
	ErrNotOwned           = errors.New("item not owned")
	ErrInsufficientCoins  = errors.New("insufficient coins")
	ErrUnknownGame        = errors.New("unknown game")
	ErrInvalidScore       = errors.New("score must not be negative")
	ErrRemoteUnavailable  = errors.New("global highscores unavailable")
)

// IsValidation reports whether err is a player-facing validation error rather
// than an infrastructure failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingFields, ErrUsernameTaken, ErrInvalidCredentials,
		ErrCosmeticNotFound, ErrSkinNotFound, ErrAlreadyOwned, ErrNotOwned,
		ErrInsufficientCoins, ErrUnknownGame, ErrInvalidScore,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
