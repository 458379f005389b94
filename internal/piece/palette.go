package piece

import "math/rand/v2"

// Palette is the fixed set of colors new pieces are drawn from.
var Palette = []string{
	"#bacded",
	"#f7bbdc",
	"#ddedab",
	"#ffd7d7",
	"#f6db70",
}

// ConsolidatedFallbackColor is used when no source piece carries a color.
const ConsolidatedFallbackColor = "#f6db70"

// Picker chooses an index in [0, n). Tests inject a deterministic one.
type Picker func(n int) int

// RandomPicker picks uniformly at random.
func RandomPicker(n int) int {
	return rand.IntN(n)
}

// PickColor returns a palette color chosen by pick.
func PickColor(pick Picker) string {
	if pick == nil {
		pick = RandomPicker
	}
	return Palette[pick(len(Palette))]
}

// StarterPieces are the cards a freshly seeded wall starts with. IDs are
// assigned by the caller so every room gets its own.
var StarterPieces = []Piece{
	{Kind: KindRegular, Color: "#bacded", Text: "Team Goals"},
	{Kind: KindRegular, Color: "#f7bbdc", Text: "Marketing"},
	{Kind: KindRegular, Color: "#ddedab", Text: "Development"},
	{Kind: KindRegular, Color: "#ffd7d7", Text: "Design Sprint"},
	{Kind: KindRegular, Color: "#f6db70", Text: "Research"},
}
