package models

// ItemType classifies catalog items. The set is closed: recommendation
// results always carry one entry per type, so adding a type here changes the
// shape of every recommendation response.
type ItemType string

const (
	ItemTypeStream ItemType = "stream"
	ItemTypeVideo  ItemType = "video"
	ItemTypeClip   ItemType = "clip"
)

// itemTypes is the canonical iteration order. Recommendation maps are keyed
// by ItemType, so the order only matters for deterministic iteration.
var itemTypes = []ItemType{ItemTypeStream, ItemTypeVideo, ItemTypeClip}

// ItemTypes returns all item types in a fixed order. The returned slice is a
// copy; callers may reorder it freely.
func ItemTypes() []ItemType {
	out := make([]ItemType, len(itemTypes))
	copy(out, itemTypes)
	return out
}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeStream, ItemTypeVideo, ItemTypeClip:
		return true
	}
	return false
}

// Item is a single piece of catalog content (a live stream, an archived
// video or a clip) tied to the game it was produced under. Items are
// read-only once fetched from the catalog; the recommendation pipeline
// filters and collects them but never mutates them.
type Item struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
	BroadcasterName string   `json:"broadcaster_name,omitempty"`
	GameID          string   `json:"game_id"`
	Type            ItemType `json:"item_type"`
}

// Game identifies a game in the upstream catalog. Beyond the ID the fields
// are display attributes only.
type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url,omitempty"`
}

// RecommendedItems maps every item type to its ranked recommendation list.
// A complete result has an entry (possibly empty) for each ItemType.
type RecommendedItems map[ItemType][]Item
