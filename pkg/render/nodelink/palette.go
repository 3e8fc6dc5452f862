package nodelink

import (
	"hash/fnv"
	"strconv"

	"github.com/matzehuels/castgraph/pkg/graph"
)

// Community is one entry of the palette.
type Community struct {
	ID    int
	Name  string
	Color string
}

// Palette holds the ten community colors and names.
var Palette = [...]Community{
	{0, "Avengers", "#e74c3c"},
	{1, "Guardians of the Galaxy", "#9b59b6"},
	{2, "Wakanda", "#2ecc71"},
	{3, "Mystic Arts", "#3498db"},
	{4, "Villains", "#f39c12"},
	{5, "Asgard", "#f1c40f"},
	{6, "X-Men", "#1abc9c"},
	{7, "Fantastic Four", "#ff69b4"},
	{8, "Defenders", "#8b4513"},
	{9, "Cosmic", "#00ffff"},
}

// Unassigned colors nodes without a community or species.
const Unassigned = "#7f8c8d"

// lookup maps a category to a palette slot. Numeric categories use their
// value modulo the palette size; other values (species names) are hashed.
func lookup(c graph.Category) (Community, bool) {
	if c == "" {
		return Community{}, false
	}
	if i, err := strconv.Atoi(string(c)); err == nil {
		return Palette[((i%len(Palette))+len(Palette))%len(Palette)], true
	}
	h := fnv.New32a()
	h.Write([]byte(c))
	return Palette[h.Sum32()%uint32(len(Palette))], true
}

// CommunityColor returns the fill color of a category.
func CommunityColor(c graph.Category) string {
	if p, ok := lookup(c); ok {
		return p.Color
	}
	return Unassigned
}

// CommunityName returns the display name of a category. Non-numeric
// categories are their own name.
func CommunityName(c graph.Category) string {
	if c == "" {
		return "Unassigned"
	}
	if _, err := strconv.Atoi(string(c)); err != nil {
		return string(c)
	}
	p, _ := lookup(c)
	return p.Name
}
