package content

// Post is a content item as the remote API ships it: a numeric id
// wrapping a bag of optional attributes.
type Post struct {
	ID         int            `json:"id"`
	Attributes PostAttributes `json:"attributes"`
}

type PostAttributes struct {
	Title       string      `json:"title,omitempty"`
	Subtitle    string      `json:"subtitle,omitempty"`
	Slug        string      `json:"slug,omitempty"`
	Topic       string      `json:"topic,omitempty"`
	Author      string      `json:"author,omitempty"`
	ReadTime    *float64    `json:"readTime,omitempty"`
	Body        string      `json:"body,omitempty"`
	CoverImg    *CoverImage `json:"coverImg,omitempty"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	UpdatedAt   string      `json:"updatedAt,omitempty"`
	PublishedAt string      `json:"publishedAt,omitempty"`
}

type CoverImage struct {
	Data *CoverImageData `json:"data"`
}

type CoverImageData struct {
	ID         int                   `json:"id"`
	Attributes *CoverImageAttributes `json:"attributes"`
}

type CoverImageAttributes struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// CoverURL walks the cover image envelope and returns the asset path,
// or "" when any level is absent.
func (p Post) CoverURL() string {
	if p.Attributes.CoverImg == nil || p.Attributes.CoverImg.Data == nil {
		return ""
	}
	if p.Attributes.CoverImg.Data.Attributes == nil {
		return ""
	}
	return p.Attributes.CoverImg.Data.Attributes.URL
}

type postsResponse struct {
	Data []Post `json:"data"`
}

// RelatedPost is the flat shape returned by the related-posts
// collection; unlike Post it is not wrapped in an attributes envelope.
type RelatedPost struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}
