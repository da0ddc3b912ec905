// Package feed turns a bounded, newest-first list of fetched posts
// into display-ready structures: a hero story, grouped story cards
// and a most-viewed rail, substituting static fallback content
// wherever the fetched data is insufficient.
package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lite-tech/briefings/internal/content"
)

// ReadTimeFallback is rendered when a post has no usable read time.
const ReadTimeFallback = "— mins"

const (
	headingMostViewed = "Most viewed"
	headingDemo       = "Most viewed (demo)"

	untitledPost    = "Untitled Post"
	defaultCategory = "General"

	relatedFallbackBackground = "linear-gradient(135deg, rgba(255,255,255,0.2), rgba(0,0,0,0.6))"
)

type HeroStory struct {
	Category   string
	Title      string
	Summary    string
	ReadTime   string
	Background string
	Slug       string // empty disables the read action
}

type StoryCard struct {
	ID         string
	Category   string
	Title      string
	Excerpt    string
	ReadTime   string
	Background string
	Slug       string // empty disables the read action
	Feature    bool   // layout hint: enlarged slot within its group
}

type MostViewedItem struct {
	ID         string
	Title      string
	Background string
	Slug       string
}

// RelatedCard is a card in the related-posts strip on article pages.
type RelatedCard struct {
	ID         string
	Title      string
	Background string
	Meta       string
	Slug       string
}

// Variant is the slot a card renders into inside its group.
type Variant string

const (
	VariantFeature Variant = "feature"
	VariantCompact Variant = "compact"
)

type GroupCard struct {
	StoryCard
	Variant Variant
}

// StoryGroup is a run of at most three cards in render order. Even
// groups lead with their feature card, odd groups tuck it behind the
// first compact card, producing the alternating "snake" layout.
type StoryGroup struct {
	Cards        []GroupCard
	FeatureFirst bool
	Banner       bool // the promotional banner renders right after this group
}

// Assembler maps fetched posts onto the page structures, resolving
// cover images against the asset base URL and substituting fallback
// content per section.
type Assembler struct {
	baseURL   string
	fallbacks *Fallbacks
}

func NewAssembler(baseURL string, fallbacks *Fallbacks) *Assembler {
	return &Assembler{baseURL: baseURL, fallbacks: fallbacks}
}

// Fallbacks exposes the seed content, mostly for rendering tests.
func (a *Assembler) Fallbacks() *Fallbacks { return a.fallbacks }

// FormatReadTime renders finite read times as "{n} mins" and anything
// else as the given fallback string.
func FormatReadTime(minutes *float64, fallback string) string {
	if minutes == nil || math.IsNaN(*minutes) || math.IsInf(*minutes, 0) {
		return fallback
	}
	return strconv.FormatFloat(*minutes, 'f', -1, 64) + " mins"
}

// FormatReadTimeVerbose is the article-page variant ("{n} mins read").
func FormatReadTimeVerbose(minutes *float64) string {
	if minutes == nil || math.IsNaN(*minutes) || math.IsInf(*minutes, 0) {
		return "— mins read"
	}
	return strconv.FormatFloat(*minutes, 'f', -1, 64) + " mins read"
}

// FormatDate renders an ISO timestamp as e.g. "Aug 31, 2026", or "—"
// when missing or unparseable.
func FormatDate(value string) string {
	if value == "" {
		return "—"
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "—"
	}
	return t.Format("Jan 2, 2006")
}

// ResolveSlug prefers the post's trimmed non-empty slug attribute and
// falls back to the decimal string of its id. Deterministic and total;
// duplicate resolved slugs are a data error and first match wins.
func ResolveSlug(post content.Post) string {
	if slug := strings.TrimSpace(post.Attributes.Slug); slug != "" {
		return slug
	}
	return strconv.Itoa(post.ID)
}

// MatchesSlug reports whether the candidate route parameter addresses
// the post, comparing case-insensitively against the slug attribute
// and against the raw numeric id string.
func MatchesSlug(post content.Post, candidate string) bool {
	if candidate == "" {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(candidate))
	if slug := strings.ToLower(strings.TrimSpace(post.Attributes.Slug)); slug != "" && slug == normalized {
		return true
	}
	return strconv.Itoa(post.ID) == normalized
}

// FindBySlug locates a post by its route parameter. A miss is a
// not-found condition for the caller.
func FindBySlug(posts []content.Post, slug string) (content.Post, bool) {
	for _, post := range posts {
		if MatchesSlug(post, slug) {
			return post, true
		}
	}
	return content.Post{}, false
}

// Background composes a CSS image reference when a cover path is
// present, else cycles the gradient palette by index.
func Background(baseURL, coverPath string, index int, palette []string) string {
	if coverPath != "" {
		return fmt.Sprintf("url(%s%s) center center / cover no-repeat", baseURL, coverPath)
	}
	if len(palette) == 0 {
		return ""
	}
	return palette[index%len(palette)]
}

// Hero maps the first post, defaulting each missing attribute to the
// fallback hero's value, or returns the fallback hero outright for an
// empty list.
func (a *Assembler) Hero(posts []content.Post) HeroStory {
	fb := a.fallbacks.Hero
	if len(posts) == 0 {
		return fb
	}

	post := posts[0]
	attrs := post.Attributes
	background := fb.Background
	if cover := post.CoverURL(); cover != "" {
		background = Background(a.baseURL, cover, 0, nil)
	}
	return HeroStory{
		Category:   orDefault(attrs.Topic, fb.Category),
		Title:      orDefault(attrs.Title, fb.Title),
		Summary:    orDefault(attrs.Subtitle, fb.Summary),
		ReadTime:   FormatReadTime(attrs.ReadTime, fb.ReadTime),
		Background: background,
		Slug:       ResolveSlug(post),
	}
}

// StoryCards maps posts [1..10) onto cards, every third card flagged
// as the feature slot. An empty slice substitutes the entire fallback
// card set.
func (a *Assembler) StoryCards(posts []content.Post) []StoryCard {
	slice := window(posts, 1, 10)
	if len(slice) == 0 {
		return a.fallbacks.StoryCards
	}

	cards := make([]StoryCard, len(slice))
	for i, post := range slice {
		attrs := post.Attributes
		cards[i] = StoryCard{
			ID:         strconv.Itoa(post.ID),
			Category:   orDefault(attrs.Topic, defaultCategory),
			Title:      orDefault(attrs.Title, untitledPost),
			Excerpt:    attrs.Subtitle,
			ReadTime:   FormatReadTime(attrs.ReadTime, ReadTimeFallback),
			Background: Background(a.baseURL, post.CoverURL(), i, a.fallbacks.StoryBackgrounds),
			Slug:       ResolveSlug(post),
			Feature:    i%3 == 0,
		}
	}
	return cards
}

// GroupStoryCards partitions cards into consecutive triads. Within a
// group the first feature-hinted card is pulled out as the group's
// single feature slot (group[0] when none is hinted); the rest render
// compact. The promotional banner follows the first group only.
func GroupStoryCards(cards []StoryCard) []StoryGroup {
	var groups []StoryGroup
	for start := 0; start < len(cards); start += 3 {
		group := cards[start:min(start+3, len(cards))]

		featureIdx := 0
		for i, card := range group {
			if card.Feature {
				featureIdx = i
				break
			}
		}
		feature := group[featureIdx]
		var compact []StoryCard
		for i, card := range group {
			if i != featureIdx {
				compact = append(compact, card)
			}
		}

		index := len(groups)
		featureFirst := index%2 == 0
		ordered := make([]GroupCard, 0, len(group))
		if featureFirst {
			ordered = append(ordered, GroupCard{feature, VariantFeature})
			for _, card := range compact {
				ordered = append(ordered, GroupCard{card, VariantCompact})
			}
		} else {
			if len(compact) > 0 {
				ordered = append(ordered, GroupCard{compact[0], VariantCompact})
			}
			ordered = append(ordered, GroupCard{feature, VariantFeature})
			for _, card := range compact[min(1, len(compact)):] {
				ordered = append(ordered, GroupCard{card, VariantCompact})
			}
		}

		groups = append(groups, StoryGroup{
			Cards:        ordered,
			FeatureFirst: featureFirst,
			Banner:       index == 0,
		})
	}
	return groups
}

// MostViewed maps posts [10..14) onto the rail and returns the section
// heading, which switches to the demo variant when the fallback set is
// substituted.
func (a *Assembler) MostViewed(posts []content.Post) ([]MostViewedItem, string) {
	slice := window(posts, 10, 14)
	if len(slice) == 0 {
		return a.fallbacks.MostViewed, headingDemo
	}
	return a.mapMostViewed(slice), headingMostViewed
}

// ArticleRail builds the article page's headline rail: every fetched
// post except the article itself, trimmed to the last four, else the
// fallback set.
func (a *Assembler) ArticleRail(posts []content.Post, excludeID int) []MostViewedItem {
	var rest []content.Post
	for _, post := range posts {
		if post.ID != excludeID {
			rest = append(rest, post)
		}
	}
	if len(rest) > 4 {
		rest = rest[len(rest)-4:]
	}
	if len(rest) == 0 {
		return a.fallbacks.MostViewed
	}
	return a.mapMostViewed(rest)
}

func (a *Assembler) mapMostViewed(posts []content.Post) []MostViewedItem {
	items := make([]MostViewedItem, len(posts))
	for i, post := range posts {
		items[i] = MostViewedItem{
			ID:         strconv.Itoa(post.ID),
			Title:      orDefault(post.Attributes.Title, untitledPost),
			Background: Background(a.baseURL, post.CoverURL(), i, a.fallbacks.MostViewedAccents),
			Slug:       ResolveSlug(post),
		}
	}
	return items
}

// RelatedCards maps the first three related posts onto strip cards.
// Absolute image URLs are kept as-is, relative ones are joined to the
// API host; the meta line is the creation date or the read-time
// fallback when the date is unusable.
func RelatedCards(posts []content.RelatedPost, host string) []RelatedCard {
	if len(posts) > 3 {
		posts = posts[:3]
	}
	cards := make([]RelatedCard, len(posts))
	for i, post := range posts {
		background := relatedFallbackBackground
		if post.ImageURL != "" {
			resolved := post.ImageURL
			if !strings.HasPrefix(resolved, "http") {
				resolved = host + resolved
			}
			background = fmt.Sprintf("url(%s)", resolved)
		}
		meta := ReadTimeFallback
		if post.CreatedAt != "" {
			if formatted := FormatDate(post.CreatedAt); formatted != "—" {
				meta = formatted
			}
		}
		cards[i] = RelatedCard{
			ID:         post.ID,
			Title:      orDefault(post.Title, untitledPost),
			Background: background,
			Meta:       meta,
			Slug:       post.ID,
		}
	}
	return cards
}

func window(posts []content.Post, start, end int) []content.Post {
	if len(posts) <= start {
		return nil
	}
	return posts[start:min(end, len(posts))]
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
