package feed

import "testing"

func TestLoadFallbacks(t *testing.T) {
	fb, err := LoadFallbacks()
	if err != nil {
		t.Fatalf("LoadFallbacks: %v", err)
	}

	if fb.Hero.Title == "" || fb.Hero.ReadTime == "" || fb.Hero.Background == "" {
		t.Errorf("hero incomplete: %+v", fb.Hero)
	}

	if len(fb.StoryCards) != 9 {
		t.Fatalf("story cards = %d, want 9", len(fb.StoryCards))
	}
	if len(fb.StoryBackgrounds) != len(fb.StoryCards) {
		t.Errorf("backgrounds = %d", len(fb.StoryBackgrounds))
	}
	for i, card := range fb.StoryCards {
		if card.ID == "" || card.Title == "" || card.Background == "" {
			t.Errorf("card %d incomplete: %+v", i, card)
		}
		if card.Slug != "" {
			t.Errorf("card %d has a slug; fallback cards must disable the read action", i)
		}
	}

	// The seed set hints its enlarged slots on the first and fifth
	// cards, so the second triad's feature sits mid-group.
	for i, card := range fb.StoryCards {
		want := i == 0 || i == 4
		if card.Feature != want {
			t.Errorf("card %d feature = %v, want %v", i, card.Feature, want)
		}
	}

	if len(fb.MostViewed) != 4 || len(fb.MostViewedAccents) != 4 {
		t.Errorf("most viewed = %d accents = %d", len(fb.MostViewed), len(fb.MostViewedAccents))
	}
	for i, item := range fb.MostViewed {
		if item.Title == "" || item.Background == "" {
			t.Errorf("most viewed %d incomplete: %+v", i, item)
		}
		if item.Slug != "" {
			t.Errorf("most viewed %d has a slug", i)
		}
	}
}

func TestFallbackGrouping(t *testing.T) {
	fb, err := LoadFallbacks()
	if err != nil {
		t.Fatalf("LoadFallbacks: %v", err)
	}
	groups := GroupStoryCards(fb.StoryCards)
	if len(groups) != 3 {
		t.Fatalf("groups = %d", len(groups))
	}
	// Second triad: hinted feature is the middle seed; the snake order
	// for an odd group puts a compact card first anyway.
	g1 := groups[1]
	if g1.Cards[0].Variant != VariantCompact {
		t.Errorf("group 1 leads with %v", g1.Cards[0].Variant)
	}
	if g1.Cards[1].Variant != VariantFeature || g1.Cards[1].ID != "studio-breakfast2" {
		t.Errorf("group 1 feature = %+v", g1.Cards[1])
	}
}
