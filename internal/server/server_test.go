package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lite-tech/briefings/internal/config"
	"github.com/lite-tech/briefings/internal/content"
	"github.com/lite-tech/briefings/internal/events"
	"github.com/lite-tech/briefings/internal/feed"
	"github.com/lite-tech/briefings/internal/submission"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backingAPI fakes the upstream content service.
type backingAPI struct {
	posts   string // JSON for GET /api/posts
	related string // JSON for GET /api/posts/related

	createdTitle string
	createdFile  string
}

func (b *backingAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if b.posts == "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, b.posts)
	})
	mux.HandleFunc("/api/posts/related", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if b.related == "" {
			_, _ = io.WriteString(w, "[]")
			return
		}
		_, _ = io.WriteString(w, b.related)
	})
	mux.HandleFunc("/api/post/related", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.createdTitle = r.FormValue("title")
		if _, header, err := r.FormFile("image"); err == nil {
			b.createdFile = header.Filename
		}
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postsJSON(n int) string {
	var items []string
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id":%d,"attributes":{"title":"Post %d","subtitle":"Sub %d","slug":"post-%d","topic":"Tech","readTime":%d,"publishedAt":"2026-08-%02dT10:00:00Z"}}`,
			i, i, i, i, i, i))
	}
	return `{"data":[` + strings.Join(items, ",") + `]}`
}

func newTestServer(t *testing.T, api *backingAPI) (*httptest.Server, *Server, *backingAPI) {
	t.Helper()
	upstream := api.server(t)

	cfg := &config.Config{
		Port:       "0",
		APIBaseURL: "https://assets.example.com",
		APIHost:    upstream.URL,
	}
	client := content.NewClient(upstream.URL, 0, testLogger())
	fallbacks, err := feed.LoadFallbacks()
	if err != nil {
		t.Fatalf("LoadFallbacks: %v", err)
	}
	assembler := feed.NewAssembler(cfg.APIBaseURL, fallbacks)
	bus := events.NewBus()
	broadcaster := &RefreshBroadcaster{Bus: bus, Logger: testLogger()}

	store := submission.NewStore(func(onClose func()) *submission.Controller {
		return submission.NewController(client, client, testLogger(),
			submission.WithOnClose(onClose),
			submission.WithBroadcaster(broadcaster),
			submission.WithUploadDuration(time.Millisecond),
		)
	}, time.Minute)
	t.Cleanup(store.Stop)

	s, err := New(cfg, client, assembler, store, bus, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	web := httptest.NewServer(s.Handler())
	t.Cleanup(web.Close)
	return web, s, api
}

func fetchDoc(t *testing.T, url string, wantStatus int) *goquery.Document {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, res.StatusCode, wantStatus)
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		t.Fatalf("parse response: %v", err)
	}
	return doc
}

func TestHomeRendersFallbackWhenAPIDown(t *testing.T) {
	web, s, _ := newTestServer(t, &backingAPI{})
	doc := fetchDoc(t, web.URL+"/", http.StatusOK)

	fallbackHero := s.assembler.Fallbacks().Hero
	if got := doc.Find(".hero-title").Text(); got != fallbackHero.Title {
		t.Errorf("hero title = %q, want fallback %q", got, fallbackHero.Title)
	}
	if got := doc.Find(".most-viewed-heading").Text(); got != "Most viewed (demo)" {
		t.Errorf("heading = %q", got)
	}
	if n := doc.Find(".story-card").Length(); n != 9 {
		t.Errorf("story cards = %d, want 9", n)
	}
	// Fallback cards have no destination, so no read links render.
	if n := doc.Find(".story-card .story-read").Length(); n != 0 {
		t.Errorf("fallback cards expose %d read links", n)
	}
}

func TestHomeRendersFetchedPosts(t *testing.T) {
	web, _, _ := newTestServer(t, &backingAPI{posts: postsJSON(14)})
	doc := fetchDoc(t, web.URL+"/", http.StatusOK)

	if got := doc.Find(".hero-title").Text(); got != "Post 1" {
		t.Errorf("hero title = %q", got)
	}
	if n := doc.Find(".story-card").Length(); n != 9 {
		t.Errorf("story cards = %d, want 9", n)
	}
	if got := doc.Find(".most-viewed-heading").Text(); got != "Most viewed" {
		t.Errorf("heading = %q", got)
	}
	if n := doc.Find(".most-viewed-item").Length(); n != 4 {
		t.Errorf("most viewed = %d, want 4", n)
	}
	// Posts 2..10 fill the cards; the hero link targets the first post.
	if href, _ := doc.Find(".hero-read").Attr("href"); href != "/blog/post-1" {
		t.Errorf("hero link = %q", href)
	}
	if n := doc.Find(".promo-banner").Length(); n != 1 {
		t.Errorf("banners = %d, want 1", n)
	}
}

func TestArticlePage(t *testing.T) {
	api := &backingAPI{
		posts:   postsJSON(5),
		related: `[{"id":"r1","title":"Community pick","imageUrl":"/uploads/r1.png","createdAt":"2026-08-20T00:00:00Z"}]`,
	}
	web, _, _ := newTestServer(t, api)

	t.Run("found by slug", func(t *testing.T) {
		doc := fetchDoc(t, web.URL+"/blog/post-2", http.StatusOK)
		if got := doc.Find(".article-title").Text(); got != "Post 2" {
			t.Errorf("title = %q", got)
		}
		if got := doc.Find(".article-readtime").Text(); got != "2 mins read" {
			t.Errorf("read time = %q", got)
		}
		if n := doc.Find(".related-card").Length(); n != 1 {
			t.Errorf("related cards = %d", n)
		}
		if got := doc.Find(".rail-heading").Text(); got != "Related headlines" {
			t.Errorf("rail heading = %q", got)
		}
		// The article itself is excluded from its own rail.
		doc.Find(".rail-item").Each(func(_ int, sel *goquery.Selection) {
			if id, _ := sel.Attr("data-id"); id == "2" {
				t.Error("article listed in its own rail")
			}
		})
	})

	t.Run("found by numeric id", func(t *testing.T) {
		doc := fetchDoc(t, web.URL+"/blog/3", http.StatusOK)
		if got := doc.Find(".article-title").Text(); got != "Post 3" {
			t.Errorf("title = %q", got)
		}
	})

	t.Run("unknown slug is a 404", func(t *testing.T) {
		fetchDoc(t, web.URL+"/blog/nope", http.StatusNotFound)
	})
}

func postJSONBody(t *testing.T, client *http.Client, method, url string, body any) submission.State {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		t.Fatalf("%s %s status = %d", method, url, res.StatusCode)
	}
	var state submission.State
	if err := json.NewDecoder(res.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestSubmissionFlow(t *testing.T) {
	api := &backingAPI{posts: postsJSON(3), related: `[]`}
	web, _, _ := newTestServer(t, api)
	client := web.Client()

	// Open a session.
	res, err := client.Post(web.URL+"/api/submissions", "application/json", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var opened struct {
		ID    string           `json:"id"`
		State submission.State `json:"state"`
	}
	if err := json.NewDecoder(res.Body).Decode(&opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	res.Body.Close()
	if opened.State.Phase != submission.PhaseSelecting {
		t.Fatalf("opened phase = %q", opened.State.Phase)
	}
	base := web.URL + "/api/submissions/" + opened.ID

	postJSONBody(t, client, http.MethodPut, base+"/title", map[string]string{"title": " Launch day "})

	// Upload the image.
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("image", "cover.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte("png-bytes"))
	_ = mw.Close()
	req, _ := http.NewRequest(http.MethodPost, base+"/file", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err = client.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	res.Body.Close()

	// The progress ramp is shortened to a millisecond; poll for it.
	deadline := time.Now().Add(2 * time.Second)
	var state submission.State
	for {
		state = postJSONBody(t, client, http.MethodGet, base, nil)
		if state.Phase == submission.PhaseSuccess || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if state.Phase != submission.PhaseSuccess || state.Progress != 100 {
		t.Fatalf("post-ramp state = %+v", state)
	}

	state = postJSONBody(t, client, http.MethodPost, base+"/confirm", nil)
	if state.Phase != submission.PhaseCompleted {
		t.Fatalf("post-confirm state = %+v", state)
	}
	if api.createdTitle != "Launch day" || api.createdFile != "cover.png" {
		t.Errorf("upstream got title=%q file=%q", api.createdTitle, api.createdFile)
	}

	state = postJSONBody(t, client, http.MethodPost, base+"/done", nil)
	if !state.Closed {
		t.Errorf("post-done state = %+v", state)
	}

	// Closing removed the session from the store.
	req, _ = http.NewRequest(http.MethodGet, base, nil)
	res, err = client.Do(req)
	if err != nil {
		t.Fatalf("get after close: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("status after close = %d, want 404", res.StatusCode)
	}
}

func TestSubmissionValidation(t *testing.T) {
	web, _, _ := newTestServer(t, &backingAPI{posts: postsJSON(1)})
	client := web.Client()

	res, err := client.Post(web.URL+"/api/submissions", "application/json", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var opened struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(res.Body).Decode(&opened)
	res.Body.Close()
	base := web.URL + "/api/submissions/" + opened.ID

	// Confirm before any upload: the flow has not reached success, so
	// nothing happens.
	state := postJSONBody(t, client, http.MethodPost, base+"/confirm", nil)
	if state.Phase != submission.PhaseSelecting {
		t.Errorf("phase = %q", state.Phase)
	}

	// Unknown sessions are a 404.
	req, _ := http.NewRequest(http.MethodGet, web.URL+"/api/submissions/00000000-0000-0000-0000-000000000000", nil)
	res, err = client.Do(req)
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session status = %d", res.StatusCode)
	}
}

func TestCreatePostButtonIsWired(t *testing.T) {
	web, _, _ := newTestServer(t, &backingAPI{posts: postsJSON(1)})

	doc := fetchDoc(t, web.URL+"/", http.StatusOK)
	if n := doc.Find(`[data-action="open-submission"]`).Length(); n != 1 {
		t.Fatalf("create-post buttons = %d, want 1", n)
	}

	res, err := http.Get(web.URL + "/static/site.js")
	if err != nil {
		t.Fatalf("GET site.js: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("site.js status = %d", res.StatusCode)
	}
	script, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read site.js: %v", err)
	}
	// The button's handler drives the session API.
	for _, needle := range []string{`data-action="open-submission"`, `"/api/submissions"`} {
		if !strings.Contains(string(script), needle) {
			t.Errorf("site.js does not reference %s", needle)
		}
	}
}
