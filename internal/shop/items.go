// Package shop holds the catalog of purchasable cosmetics and game skins.
package shop

import "github.com/Jay160412/jay-website/internal/model"

// CosmeticID identifies a cosmetic item.
type CosmeticID string

// Cosmetic identifiers. A cosmetic styles the owner's name on leaderboards.
const (
	CosmeticGoldName    CosmeticID = "gold_name"
	CosmeticRainbowName CosmeticID = "rainbow_name"
	CosmeticBlueName    CosmeticID = "blue_name"
	CosmeticGreenName   CosmeticID = "green_name"
	CosmeticPurpleName  CosmeticID = "purple_name"
)

// DefaultSkin is the skin every player owns in every game family.
const DefaultSkin = "classic"

// Cosmetic holds the configuration for a cosmetic item.
type Cosmetic struct {
	ID          CosmeticID  `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       int64       `json:"price"`
	Style       model.Style `json:"style"`
}

// Skin holds the configuration for a game skin.
type Skin struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Price int64  `json:"price"`
}

// Cosmetics contains all available cosmetic items.
var Cosmetics = map[CosmeticID]Cosmetic{
	CosmeticGoldName: {
		ID:          CosmeticGoldName,
		Name:        "Golden Name",
		Description: "Your name appears in gold on the leaderboard",
		Price:       200,
		Style:       model.Style{Color: "#FFD700"},
	},
	CosmeticRainbowName: {
		ID:          CosmeticRainbowName,
		Name:        "Rainbow Name",
		Description: "Your name appears in rainbow colours on the leaderboard",
		Price:       500,
		Style:       model.Style{Gradient: "linear-gradient(to right, red, orange, yellow, green, blue, indigo, violet)"},
	},
	CosmeticBlueName: {
		ID:          CosmeticBlueName,
		Name:        "Blue Name",
		Description: "Your name appears in blue on the leaderboard",
		Price:       100,
		Style:       model.Style{Color: "#3b82f6"},
	},
	CosmeticGreenName: {
		ID:          CosmeticGreenName,
		Name:        "Green Name",
		Description: "Your name appears in green on the leaderboard",
		Price:       100,
		Style:       model.Style{Color: "#10b981"},
	},
	CosmeticPurpleName: {
		ID:          CosmeticPurpleName,
		Name:        "Purple Name",
		Description: "Your name appears in purple on the leaderboard",
		Price:       150,
		Style:       model.Style{Color: "#8b5cf6"},
	},
}

// cosmeticOrder is the display order of the cosmetic catalog.
var cosmeticOrder = []CosmeticID{
	CosmeticGoldName,
	CosmeticRainbowName,
	CosmeticBlueName,
	CosmeticGreenName,
	CosmeticPurpleName,
}

// Skin families and their skins, cheapest first.
var skins = map[string][]Skin{
	"snake": {
		{ID: DefaultSkin, Name: "Classic Snake", Color: "#8b5cf6", Price: 0},
		{ID: "neon", Name: "Neon Snake", Color: "#00ff88", Price: 120},
		{ID: "fire", Name: "Fire Snake", Color: "#ff4444", Price: 220},
		{ID: "ice", Name: "Ice Snake", Color: "#44aaff", Price: 320},
		{ID: "rainbow", Name: "Rainbow Snake", Color: "rainbow", Price: 550},
	},
	"runner": {
		{ID: DefaultSkin, Name: "Cyber Cube", Color: "#8b5cf6", Price: 0},
		{ID: "neon", Name: "Neon Glow", Color: "#00ff88", Price: 100},
		{ID: "fire", Name: "Fire Dash", Color: "#ff4444", Price: 200},
		{ID: "ice", Name: "Ice Crystal", Color: "#44aaff", Price: 300},
		{ID: "rainbow", Name: "Rainbow Rush", Color: "#ff00ff", Price: 500},
	},
	"flappy": {
		{ID: DefaultSkin, Name: "Classic Bird", Color: "#FFD700", Price: 0},
		{ID: "red", Name: "Red Phoenix", Color: "#FF4444", Price: 50},
		{ID: "blue", Name: "Blue Jay", Color: "#4444FF", Price: 100},
		{ID: "green", Name: "Green Parrot", Color: "#44FF44", Price: 150},
		{ID: "purple", Name: "Purple Eagle", Color: "#AA44FF", Price: 200},
		{ID: "rainbow", Name: "Rainbow Bird", Color: "rainbow", Price: 500},
	},
	"tetris": {
		{ID: DefaultSkin, Name: "Classic Blocks", Color: "#8b5cf6", Price: 0},
		{ID: "neon", Name: "Neon Blocks", Color: "#00ff88", Price: 150},
		{ID: "fire", Name: "Fire Blocks", Color: "#ff4444", Price: 250},
		{ID: "ice", Name: "Ice Blocks", Color: "#44aaff", Price: 350},
		{ID: "gold", Name: "Golden Blocks", Color: "#ffd700", Price: 600},
	},
	"memory": {
		{ID: DefaultSkin, Name: "Classic Cards", Color: "#8b5cf6", Price: 0},
		{ID: "neon", Name: "Neon Cards", Color: "#00ff88", Price: 80},
		{ID: "fire", Name: "Fire Cards", Color: "#ff4444", Price: 180},
		{ID: "ice", Name: "Ice Cards", Color: "#44aaff", Price: 280},
		{ID: "gold", Name: "Golden Cards", Color: "#ffd700", Price: 480},
	},
}

// skinFamilyOrder is the display order of the skin families.
var skinFamilyOrder = []string{"snake", "runner", "flappy", "tetris", "memory"}

// GetAllCosmetics returns all cosmetics in display order.
func GetAllCosmetics() []Cosmetic {
	items := make([]Cosmetic, 0, len(cosmeticOrder))
	for _, id := range cosmeticOrder {
		if item, ok := Cosmetics[id]; ok {
			items = append(items, item)
		}
	}
	return items
}

// GetCosmetic returns the cosmetic with the given id.
func GetCosmetic(id string) (Cosmetic, bool) {
	item, ok := Cosmetics[CosmeticID(id)]
	return item, ok
}

// StyleFor returns the presentation of an active cosmetic, or nil when the
// id is nil or unknown.
func StyleFor(id *string) *model.Style {
	if id == nil {
		return nil
	}
	item, ok := Cosmetics[CosmeticID(*id)]
	if !ok {
		return nil
	}
	style := item.Style
	return &style
}

// SkinFamilies returns the games that offer skins, in display order.
func SkinFamilies() []string {
	return append([]string(nil), skinFamilyOrder...)
}

// GetSkins returns the skins of a family, or false for a game without skins.
func GetSkins(family string) ([]Skin, bool) {
	list, ok := skins[family]
	if !ok {
		return nil, false
	}
	return append([]Skin(nil), list...), true
}

// GetSkin returns the skin with the given id in a family.
func GetSkin(family, id string) (Skin, bool) {
	for _, s := range skins[family] {
		if s.ID == id {
			return s, true
		}
	}
	return Skin{}, false
}

// Catalog is the full shop listing.
type Catalog struct {
	Cosmetics []Cosmetic        `json:"cosmetics"`
	Skins     map[string][]Skin `json:"skins"`
}

// GetCatalog returns the full shop listing.
func GetCatalog() Catalog {
	c := Catalog{
		Cosmetics: GetAllCosmetics(),
		Skins:     make(map[string][]Skin, len(skins)),
	}
	for family, list := range skins {
		c.Skins[family] = append([]Skin(nil), list...)
	}
	return c
}
