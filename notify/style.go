package notify

// platformStyle is the fixed per-platform display metadata used by the
// embed renderers.
type platformStyle struct {
	Author  string
	IconURL string
	Color   int
}

const colorDarkGreen = 0x1f8b4c

var platformStyles = map[string]platformStyle{
	"curseforge": {
		Author:  "From curseforge.com",
		IconURL: "https://media.forgecdn.net/avatars/thumbnails/250/81/64/64/636762972962846222.png",
		Color:   0xf87a1b,
	},
	"modrinth": {
		Author:  "From modrinth.com",
		IconURL: "https://cdn.modrinth.com/modrinth-new.png",
		Color:   0x1bd96a,
	},
}

func styleFor(platform string) platformStyle {
	if style, ok := platformStyles[platform]; ok {
		return style
	}
	return platformStyle{
		Author: "From unknown source",
		Color:  colorDarkGreen,
	}
}
