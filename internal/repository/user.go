package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
)

// userTable is the layout of the gameUsers document. Records stay raw until
// read so that fields missing from older records can be detected.
type userTable = map[string]json.RawMessage

// UserRepository handles user account persistence in the gameUsers table.
type UserRepository struct {
	users document[userTable]
	now   func() time.Time
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(store kv.Store, locks *lock.KeyLock) *UserRepository {
	return &UserRepository{
		users: document[userTable]{store: store, locks: locks, key: UsersKey},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a fresh account with the given starting balance.
// An existing record under the same username is overwritten; callers check
// for duplicates first.
func (r *UserRepository) Create(ctx context.Context, username, password string, coins int64) (*model.User, error) {
	now := r.now()
	user := &model.User{
		Username:       username,
		Password:       password,
		Coins:          coins,
		Cosmetics:      []string{},
		ActiveCosmetic: nil,
		CreatedAt:      now,
		LastLogin:      now,
	}

	if err := r.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Get retrieves a user by username.
// Records written before cosmetics existed are backfilled and written back.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) Get(ctx context.Context, username string) (*model.User, error) {
	var user *model.User
	err := r.users.update(ctx, func(t *userTable) (bool, error) {
		raw, ok := (*t)[username]
		if !ok {
			return false, ErrUserNotFound
		}

		u, migrated, err := decodeUser(raw)
		if err != nil {
			return false, err
		}
		user = u
		if !migrated {
			return false, nil
		}

		log.Info().Str("username", username).Msg("Backfilled cosmetic fields of stored user")
		return true, putUser(*t, u)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Save overwrites the record keyed by user.Username.
func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	return r.users.update(ctx, func(t *userTable) (bool, error) {
		if *t == nil {
			*t = make(userTable)
		}
		return true, putUser(*t, user)
	})
}

// Update loads the user, applies fn and writes the record back when fn
// reports a change. The whole cycle holds the table lock.
func (r *UserRepository) Update(ctx context.Context, username string, fn func(u *model.User) (bool, error)) (*model.User, error) {
	var user *model.User
	err := r.users.update(ctx, func(t *userTable) (bool, error) {
		raw, ok := (*t)[username]
		if !ok {
			return false, ErrUserNotFound
		}

		u, migrated, err := decodeUser(raw)
		if err != nil {
			return false, err
		}
		changed, err := fn(u)
		if err != nil {
			return false, err
		}
		user = u
		if !changed && !migrated {
			return false, nil
		}
		return true, putUser(*t, u)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Exists reports whether an account with the username is stored.
func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	t, err := r.users.load(ctx)
	if err != nil {
		return false, err
	}
	_, ok := t[username]
	return ok, nil
}

// Lookup returns the stored users among usernames, with missing fields
// backfilled in the returned values only. Names without a record are left
// out. Damaged records are logged and left out so one bad entry does not hide
// the others.
func (r *UserRepository) Lookup(ctx context.Context, usernames []string) (map[string]*model.User, error) {
	t, err := r.users.load(ctx)
	if err != nil {
		return nil, err
	}

	users := make(map[string]*model.User, len(usernames))
	for _, name := range usernames {
		raw, ok := t[name]
		if !ok {
			continue
		}
		u, _, err := decodeUser(raw)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("username", name).Msg("Skipping damaged user record")
			continue
		}
		users[name] = u
	}
	return users, nil
}

// decodeUser parses one stored record and reports whether fields had to be
// backfilled.
func decodeUser(raw json.RawMessage) (*model.User, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	migrated := false
	if _, ok := fields["activeCosmetic"]; !ok {
		u.ActiveCosmetic = nil
		migrated = true
	}
	if _, ok := fields["cosmetics"]; !ok || u.Cosmetics == nil {
		u.Cosmetics = []string{}
		migrated = true
	}
	return &u, migrated, nil
}

func putUser(t userTable, u *model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user %q: %w", u.Username, err)
	}
	t[u.Username] = data
	return nil
}
