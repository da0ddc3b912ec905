package feed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fallbacks.yaml
var fallbacksYAML []byte

// Fallbacks is the static substitute content for every feed section.
// A section is rendered entirely from fetched posts or entirely from
// here, never a mix.
type Fallbacks struct {
	Hero       HeroStory
	StoryCards []StoryCard
	MostViewed []MostViewedItem

	// StoryBackgrounds and MostViewedAccents are the ordered gradient
	// palettes cycled (index modulo length) for fetched posts without
	// a cover image.
	StoryBackgrounds  []string
	MostViewedAccents []string
}

type fallbackFile struct {
	Hero struct {
		Category   string `yaml:"category"`
		Title      string `yaml:"title"`
		Summary    string `yaml:"summary"`
		ReadTime   string `yaml:"readTime"`
		Background string `yaml:"background"`
	} `yaml:"hero"`
	Palette    []string `yaml:"palette"`
	StoryCards []struct {
		ID       string `yaml:"id"`
		Category string `yaml:"category"`
		Title    string `yaml:"title"`
		Excerpt  string `yaml:"excerpt"`
		ReadTime string `yaml:"readTime"`
		Palette  int    `yaml:"palette"`
		Feature  bool   `yaml:"feature"`
	} `yaml:"storyCards"`
	MostViewed []struct {
		Title  string `yaml:"title"`
		Accent string `yaml:"accent"`
	} `yaml:"mostViewed"`
}

// LoadFallbacks parses the embedded seed content.
func LoadFallbacks() (*Fallbacks, error) {
	var file fallbackFile
	if err := yaml.Unmarshal(fallbacksYAML, &file); err != nil {
		return nil, fmt.Errorf("unmarshal fallbacks: %w", err)
	}
	if len(file.Palette) == 0 {
		return nil, fmt.Errorf("fallbacks: gradient palette is empty")
	}
	if file.Hero.Title == "" {
		return nil, fmt.Errorf("fallbacks: hero is missing")
	}

	fb := &Fallbacks{
		Hero: HeroStory{
			Category:   file.Hero.Category,
			Title:      file.Hero.Title,
			Summary:    file.Hero.Summary,
			ReadTime:   file.Hero.ReadTime,
			Background: file.Hero.Background,
		},
	}

	for _, card := range file.StoryCards {
		if card.Palette < 0 || card.Palette >= len(file.Palette) {
			return nil, fmt.Errorf("fallbacks: card %q references palette entry %d", card.ID, card.Palette)
		}
		background := file.Palette[card.Palette]
		fb.StoryCards = append(fb.StoryCards, StoryCard{
			ID:         card.ID,
			Category:   card.Category,
			Title:      card.Title,
			Excerpt:    card.Excerpt,
			ReadTime:   card.ReadTime,
			Background: background,
			Feature:    card.Feature,
		})
		fb.StoryBackgrounds = append(fb.StoryBackgrounds, background)
	}

	for i, seed := range file.MostViewed {
		fb.MostViewed = append(fb.MostViewed, MostViewedItem{
			ID:         fmt.Sprintf("fallback-%d", i),
			Title:      seed.Title,
			Background: seed.Accent,
		})
		fb.MostViewedAccents = append(fb.MostViewedAccents, seed.Accent)
	}

	return fb, nil
}
