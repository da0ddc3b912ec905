package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/lite-tech/briefings/internal/content"
	"github.com/lite-tech/briefings/internal/feed"
)

var topics = []string{"Tech", "Culture", "Business", "Science", "Design"}

const (
	articleFallbackBackground = "linear-gradient(135deg, #1f1f1f, #0f0f0f)"
	articleFallbackAuthor     = "Lite-Tech Editorial"
	articleRailHeading        = "Related headlines"
)

// demoArticleBody fills in for posts the backing API returns without a
// body, so the article page never renders empty.
const demoArticleBody = `This story is part of our demo data set. The
publishing pipeline that supplies full article bodies has not delivered
one for this post yet.

Check back soon, or browse the related headlines below.`

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

type homeData struct {
	Topics            []string
	Hero              feed.HeroStory
	Groups            []feed.StoryGroup
	MostViewed        []feed.MostViewedItem
	MostViewedHeading string
}

type articleData struct {
	Topics      []string
	Title       string
	Subtitle    string
	Author      string
	Date        string
	ReadTime    string
	Background  string
	Body        template.HTML
	RailHeading string
	Rail        []feed.MostViewedItem
	Related     []feed.RelatedCard
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	posts, err := s.client.FetchPosts(r.Context(), content.DefaultWindow)
	if err != nil {
		// The page renders entirely from fallback content when the
		// backing API is unreachable.
		s.logger.Error("fetch posts failed", "error", err)
		posts = nil
	}

	mostViewed, heading := s.assembler.MostViewed(posts)
	s.render(w, http.StatusOK, "home.html", homeData{
		Topics:            topics,
		Hero:              s.assembler.Hero(posts),
		Groups:            feed.GroupStoryCards(s.assembler.StoryCards(posts)),
		MostViewed:        mostViewed,
		MostViewedHeading: heading,
	})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	posts, err := s.client.FetchPosts(r.Context(), content.DefaultWindow)
	if err != nil {
		s.logger.Error("fetch posts failed", "error", err)
		posts = nil
	}

	post, ok := feed.FindBySlug(posts, slug)
	if !ok {
		s.renderNotFound(w)
		return
	}
	attrs := post.Attributes

	background := articleFallbackBackground
	if cover := post.CoverURL(); cover != "" {
		background = feed.Background(s.cfg.APIBaseURL, cover, 0, nil)
	}

	body := attrs.Body
	if body == "" {
		body = demoArticleBody
	}
	var rendered bytes.Buffer
	if err := markdown.Convert([]byte(body), &rendered); err != nil {
		s.logger.Error("render article body", "slug", slug, "error", err)
		rendered.Reset()
		rendered.WriteString("<p>This article could not be rendered.</p>")
	}

	var related []feed.RelatedCard
	if relatedPosts, err := s.client.FetchRelated(r.Context()); err != nil {
		s.logger.Warn("fetch related posts failed", "error", err)
	} else {
		related = feed.RelatedCards(relatedPosts, s.cfg.APIHost)
	}

	author := attrs.Author
	if author == "" {
		author = articleFallbackAuthor
	}

	s.render(w, http.StatusOK, "article.html", articleData{
		Topics:      topics,
		Title:       orFallback(attrs.Title, "Untitled Post"),
		Subtitle:    attrs.Subtitle,
		Author:      author,
		Date:        feed.FormatDate(attrs.PublishedAt),
		ReadTime:    feed.FormatReadTimeVerbose(attrs.ReadTime),
		Background:  background,
		Body:        template.HTML(rendered.String()),
		RailHeading: articleRailHeading,
		Rail:        s.assembler.ArticleRail(posts, post.ID),
		Related:     related,
	})
}

func (s *Server) renderNotFound(w http.ResponseWriter) {
	s.render(w, http.StatusNotFound, "notfound.html", struct{ Topics []string }{topics})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render template", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func orFallback(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
