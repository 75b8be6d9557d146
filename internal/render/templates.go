package render

import (
	"strings"

	"fragreel/internal/media/ffmpeg"
)

// Template is a read-only output profile.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FPS         int    `json:"fps"`
	Bitrate     string `json:"bitrate"`
	Transitions bool   `json:"has_transitions"`
	Effects     bool   `json:"has_effects"`
	Music       bool   `json:"has_music"`
}

// Profile returns the encoding parameters for the template.
func (t Template) Profile() ffmpeg.Profile {
	return ffmpeg.Profile{Width: t.Width, Height: t.Height, FPS: t.FPS, Bitrate: t.Bitrate}
}

var templates = []Template{
	{
		ID:          "clean",
		Name:        "Clean",
		Description: "No effects, the moment as it happened",
		Width:       1920,
		Height:      1080,
		FPS:         60,
		Bitrate:     "20M",
	},
	{
		ID:          "esports",
		Name:        "Esports Pro",
		Description: "Broadcast style for tournament reels",
		Width:       1920,
		Height:      1080,
		FPS:         60,
		Bitrate:     "25M",
		Transitions: true,
		Effects:     true,
		Music:       true,
	},
	{
		ID:          "minimal",
		Name:        "Minimal",
		Description: "Lean cut that keeps the focus on the play",
		Width:       1920,
		Height:      1080,
		FPS:         60,
		Bitrate:     "15M",
		Transitions: true,
	},
}

// Templates returns a copy of the template table.
func Templates() []Template {
	return append([]Template(nil), templates...)
}

// LookupTemplate finds a template by id, case-insensitively.
func LookupTemplate(id string) (Template, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
