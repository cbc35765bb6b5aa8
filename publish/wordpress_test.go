package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/homily/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sermon() *core.Item {
	return &core.Item{
		ID:       "abc123",
		TenantID: "grace",
		Title:    "Living Water",
		AudioURL: "https://cdn.example.org/audio/grace/abc123.mp3",
		GuideURL: "https://cdn.example.org/guides/grace/abc123_discussion_guide.pdf",
		Content: &core.AIContent{
			Summary:              "Jesus meets a woman at a well.",
			BigIdea:              "Only Jesus satisfies.",
			PrimaryScripture:     core.Scripture{Reference: "John 4:13-14", Text: "Whoever drinks..."},
			SupportingScriptures: []core.Scripture{{Reference: "Isaiah 55:1"}},
			Topics:               []string{"thirst", "grace"},
			DiscussionGuide: core.DiscussionGuide{
				Questions:    []string{"What was she looking for?"},
				Application:  "Bring one thirst to Jesus.",
				PrayerPoints: []string{"For honesty"},
			},
		},
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		SiteURL:     url + "/",
		Username:    "editor",
		AppPassword: "app pass",
		Categories:  []int{7},
		RetryDelay:  time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(Config{Username: "u", AppPassword: "p"})
	assert.ErrorIs(t, err, ErrSiteURLRequired)

	_, err = NewClient(Config{SiteURL: "https://example.org"})
	assert.ErrorIs(t, err, ErrCredentialsRequired)

	c, err := NewClient(Config{SiteURL: "https://example.org", Username: "u", AppPassword: "p"})
	require.NoError(t, err)
	assert.Equal(t, DefaultStatus, c.cfg.Status)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}

func TestPublish_CreatesPost(t *testing.T) {
	var got postRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "editor", user)
		assert.Equal(t, "app pass", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 42, "link": "https://example.org/living-water"}`))
	}))
	defer srv.Close()

	pub, err := newTestClient(t, srv.URL).Publish(context.Background(), sermon())
	require.NoError(t, err)
	assert.Equal(t, core.Publication{PostID: 42, PostURL: "https://example.org/living-water"}, pub)

	assert.Equal(t, "Living Water", got.Title)
	assert.Equal(t, "publish", got.Status)
	assert.Equal(t, "Jesus meets a woman at a well.", got.Excerpt)
	assert.Equal(t, []int{7}, got.Categories)
	assert.Contains(t, got.Content, `<audio controls src="https://cdn.example.org/audio/grace/abc123.mp3">`)
	assert.Contains(t, got.Content, "<h3>Discussion Questions</h3>")
	assert.Contains(t, got.Content, "<li>What was she looking for?</li>")
	assert.Contains(t, got.Content, "<h3>This Week's Challenge</h3>")
	assert.Contains(t, got.Content, "Related passages: Isaiah 55:1")
	assert.Contains(t, got.Content, "https://www.youtube.com/embed/abc123")
	assert.Contains(t, got.Content, "abc123_discussion_guide.pdf")
	assert.Contains(t, got.Content, "Topics: thirst, grace")
}

func TestPublish_UpdatesExistingPost(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"id": 42, "link": "https://example.org/p/42"}`))
	}))
	defer srv.Close()

	item := sermon()
	item.Publication.PostID = 42
	pub, err := newTestClient(t, srv.URL).Publish(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, "/wp-json/wp/v2/posts/42", path)
	assert.Equal(t, int64(42), pub.PostID)
}

func TestPublish_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id": 9, "link": "https://example.org/p/9"}`))
	}))
	defer srv.Close()

	pub, err := newTestClient(t, srv.URL).Publish(context.Background(), sermon())
	require.NoError(t, err)
	assert.Equal(t, int64(9), pub.PostID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPublish_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code": "rest_cannot_create", "message": "Sorry, you are not allowed to create posts."}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Publish(context.Background(), sermon())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Sorry, you are not allowed to create posts.", apiErr.Message)
	assert.Contains(t, err.Error(), "WordPress API error (401)")
	assert.Equal(t, int32(1), calls.Load())
}

func TestPublish_MissingPostID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Publish(context.Background(), sermon())
	assert.ErrorIs(t, err, ErrMissingPostID)
}

func TestRenderContent_Minimal(t *testing.T) {
	item := &core.Item{ID: "xyz", Title: "Untitled", SourceURL: "https://vimeo.com/1"}
	html, err := renderContent(item)
	require.NoError(t, err)
	assert.NotContains(t, html, "youtube")
	assert.NotContains(t, html, "<audio")
	assert.Equal(t, "Untitled", excerpt(item))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "bad", errorMessage([]byte(`{"message":"bad"}`)))
	assert.Equal(t, "<html>oops</html>", errorMessage([]byte("  <html>oops</html>\n")))
}
