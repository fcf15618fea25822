package domain

// LocationKind distinguishes cities from districts in the catalogue.
type LocationKind string

const (
	LocationCity     LocationKind = "city"
	LocationDistrict LocationKind = "district"
)

// Location is a named place with its own prayer time table.
type Location struct {
	ID   string
	Kind LocationKind
	Name string
}

// Icon returns the emoji shown next to the location in menus.
func (l Location) Icon() string {
	if l.Kind == LocationCity {
		return "🏙️"
	}
	return "🏘️"
}
