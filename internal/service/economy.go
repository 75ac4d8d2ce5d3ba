package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
	"github.com/Jay160412/jay-website/internal/repository"
	"github.com/Jay160412/jay-website/internal/shop"
)

// CoinPublisher receives a CoinEvent after every balance change.
type CoinPublisher interface {
	Publish(ev model.CoinEvent)
}

// EconomyService handles coin balances, cosmetics and game skins.
type EconomyService struct {
	users     *repository.UserRepository
	skins     *repository.SkinRepository
	publisher CoinPublisher
	userLock  *lock.KeyLock
	now       func() time.Time
}

// NewEconomyService creates a new EconomyService instance.
func NewEconomyService(
	users *repository.UserRepository,
	skins *repository.SkinRepository,
	publisher CoinPublisher,
	userLock *lock.KeyLock,
) *EconomyService {
	return &EconomyService{
		users:     users,
		skins:     skins,
		publisher: publisher,
		userLock:  userLock,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UpdateCoins adds delta to the balance, clamping at zero, and broadcasts
// the new balance.
func (s *EconomyService) UpdateCoins(ctx context.Context, username string, delta int64) (*model.User, error) {
	user, err := s.users.Update(ctx, username, func(u *model.User) (bool, error) {
		u.Coins = addCoins(u.Coins, delta)
		u.LastLogin = s.now()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("username", username).
		Int64("delta", delta).
		Int64("coins", user.Coins).
		Msg("Coins updated")

	s.publish(user.Username, user.Coins)
	return user, nil
}

// AddCosmetic adds a cosmetic to the owned set. It returns false when the
// user already owns it.
func (s *EconomyService) AddCosmetic(ctx context.Context, username, cosmeticID string) (bool, error) {
	added := false
	_, err := s.users.Update(ctx, username, func(u *model.User) (bool, error) {
		if u.HasCosmetic(cosmeticID) {
			return false, nil
		}
		u.Cosmetics = append(u.Cosmetics, cosmeticID)
		added = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// UpdateActiveCosmetic activates an owned cosmetic, or deactivates when
// cosmeticID is nil. It returns false and changes nothing for an unowned id.
func (s *EconomyService) UpdateActiveCosmetic(ctx context.Context, username string, cosmeticID *string) (bool, error) {
	accepted := false
	_, err := s.users.Update(ctx, username, func(u *model.User) (bool, error) {
		if cosmeticID == nil {
			u.ActiveCosmetic = nil
			accepted = true
			return true, nil
		}
		if !u.HasCosmetic(*cosmeticID) {
			return false, nil
		}
		id := *cosmeticID
		u.ActiveCosmetic = &id
		accepted = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// GetActiveCosmetic returns the active cosmetic id, or nil when none is active.
func (s *EconomyService) GetActiveCosmetic(ctx context.Context, username string) (*string, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.ActiveCosmetic, nil
}

// PurchaseCosmetic buys a catalog cosmetic. The price deduction and the
// ownership change are written together.
func (s *EconomyService) PurchaseCosmetic(ctx context.Context, username, cosmeticID string) (*model.User, error) {
	item, ok := shop.GetCosmetic(cosmeticID)
	if !ok {
		return nil, ErrCosmeticNotFound
	}

	user, err := s.users.Update(ctx, username, func(u *model.User) (bool, error) {
		if u.HasCosmetic(cosmeticID) {
			return false, ErrAlreadyOwned
		}
		if u.Coins < item.Price {
			return false, ErrInsufficientCoins
		}
		u.Coins -= item.Price
		u.Cosmetics = append(u.Cosmetics, cosmeticID)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("username", username).
		Str("cosmetic", cosmeticID).
		Int64("price", item.Price).
		Int64("coins", user.Coins).
		Msg("Cosmetic purchased")

	s.publish(user.Username, user.Coins)
	return user, nil
}

// GetUserData returns the balance together with the owned and active skins.
func (s *EconomyService) GetUserData(ctx context.Context, username string) (*model.UserData, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	data, err := s.skins.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return userData(user, data), nil
}

// PurchaseSkin buys a skin of a game family and makes it active.
// Coins are refunded when the skin record cannot be written.
func (s *EconomyService) PurchaseSkin(ctx context.Context, username, family, skinID string) (*model.UserData, error) {
	skin, ok := shop.GetSkin(family, skinID)
	if !ok {
		return nil, ErrSkinNotFound
	}

	// The balance and the skin data are separate records
	var (
		user *model.User
		data *model.SkinData
	)
	err := s.userLock.WithLockContext(ctx, username, userLockTimeout, func() error {
		var err error
		user, data, err = s.buySkin(ctx, username, family, skin)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("username", username).
		Str("family", family).
		Str("skin", skinID).
		Int64("price", skin.Price).
		Msg("Skin purchased")

	s.publish(user.Username, user.Coins)
	return userData(user, data), nil
}

// buySkin deducts the price and grants the skin. The caller holds the user lock.
func (s *EconomyService) buySkin(ctx context.Context, username, family string, skin shop.Skin) (*model.User, *model.SkinData, error) {
	skinID := skin.ID
	current, err := s.skins.Get(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if slices.Contains(current.OwnedSkins[family], skinID) {
		return nil, nil, ErrAlreadyOwned
	}

	// Deduct coins
	user, err := s.users.Update(ctx, username, func(u *model.User) (bool, error) {
		if u.Coins < skin.Price {
			return false, ErrInsufficientCoins
		}
		u.Coins -= skin.Price
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Grant and activate the skin
	data, err := s.skins.Update(ctx, username, func(d *model.SkinData) (bool, error) {
		if !slices.Contains(d.OwnedSkins[family], skinID) {
			d.OwnedSkins[family] = append(d.OwnedSkins[family], skinID)
		}
		d.ActiveSkins[family] = skinID
		return true, nil
	})
	if err != nil {
		s.refund(ctx, username, skin.Price, err)
		return nil, nil, fmt.Errorf("failed to grant skin: %w", err)
	}
	return user, data, nil
}

// SelectSkin activates an already owned skin.
func (s *EconomyService) SelectSkin(ctx context.Context, username, family, skinID string) (*model.UserData, error) {
	if _, ok := shop.GetSkin(family, skinID); !ok {
		return nil, ErrSkinNotFound
	}

	user, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, err
	}

	data, err := s.skins.Update(ctx, username, func(d *model.SkinData) (bool, error) {
		if !slices.Contains(d.OwnedSkins[family], skinID) {
			return false, ErrNotOwned
		}
		if d.ActiveSkins[family] == skinID {
			return false, nil
		}
		d.ActiveSkins[family] = skinID
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return userData(user, data), nil
}

// refund returns coins after a failed purchase step.
func (s *EconomyService) refund(ctx context.Context, username string, amount int64, cause error) {
	user, err := s.users.Update(ctx, username, func(u *model.User) (bool, error) {
		u.Coins += amount
		return true, nil
	})
	if err != nil {
		log.Error().
			Err(err).
			AnErr("cause", cause).
			Str("username", username).
			Int64("amount", amount).
			Msg("Failed to refund coins")
		return
	}
	log.Warn().
		AnErr("cause", cause).
		Str("username", username).
		Int64("amount", amount).
		Msg("Coins refunded")
	s.publish(user.Username, user.Coins)
}

func (s *EconomyService) publish(username string, coins int64) {
	if s.publisher != nil {
		s.publisher.Publish(model.CoinEvent{Username: username, Coins: coins})
	}
}

// addCoins returns balance+delta clamped to [0, math.MaxInt64].
func addCoins(balance, delta int64) int64 {
	if delta > 0 && balance > math.MaxInt64-delta {
		return math.MaxInt64
	}
	return max(0, balance+delta)
}

func userData(user *model.User, data *model.SkinData) *model.UserData {
	return &model.UserData{
		Coins:       user.Coins,
		OwnedSkins:  data.OwnedSkins,
		ActiveSkins: data.ActiveSkins,
	}
}
