package repository

import (
	"context"

	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
)

// SkinRepository handles the per-user extended game data stored under
// user_<username>, separately from the account record.
type SkinRepository struct {
	store       kv.Store
	locks       *lock.KeyLock
	families    []string
	defaultSkin string
}

// NewSkinRepository creates a new SkinRepository instance. Every family in
// families reports defaultSkin as owned and active until the user changes it.
func NewSkinRepository(store kv.Store, locks *lock.KeyLock, families []string, defaultSkin string) *SkinRepository {
	return &SkinRepository{
		store:       store,
		locks:       locks,
		families:    families,
		defaultSkin: defaultSkin,
	}
}

func (r *SkinRepository) doc(username string) *document[model.SkinData] {
	return &document[model.SkinData]{store: r.store, locks: r.locks, key: SkinDataKey(username)}
}

// Get returns the user's skin data with defaults filled in for families
// that have no stored entry.
func (r *SkinRepository) Get(ctx context.Context, username string) (*model.SkinData, error) {
	data, err := r.doc(username).load(ctx)
	if err != nil {
		return nil, err
	}
	r.fillDefaults(&data)
	return &data, nil
}

// Save overwrites the user's skin data.
func (r *SkinRepository) Save(ctx context.Context, username string, data *model.SkinData) error {
	d := r.doc(username)
	return d.locks.WithLockContext(ctx, d.key, lockTimeout, func() error {
		return d.save(ctx, *data)
	})
}

// Update applies fn to the user's skin data and writes it back when fn
// reports a change.
func (r *SkinRepository) Update(ctx context.Context, username string, fn func(data *model.SkinData) (bool, error)) (*model.SkinData, error) {
	var result model.SkinData
	err := r.doc(username).update(ctx, func(data *model.SkinData) (bool, error) {
		r.fillDefaults(data)
		changed, err := fn(data)
		result = *data
		return changed, err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *SkinRepository) fillDefaults(data *model.SkinData) {
	if data.OwnedSkins == nil {
		data.OwnedSkins = make(map[string][]string, len(r.families))
	}
	if data.ActiveSkins == nil {
		data.ActiveSkins = make(map[string]string, len(r.families))
	}
	for _, family := range r.families {
		if len(data.OwnedSkins[family]) == 0 {
			data.OwnedSkins[family] = []string{r.defaultSkin}
		}
		if data.ActiveSkins[family] == "" {
			data.ActiveSkins[family] = r.defaultSkin
		}
	}
}
