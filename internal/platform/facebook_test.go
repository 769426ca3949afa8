package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFacebookTest(srvURL string) *facebookPublisher {
	return &facebookPublisher{client: &http.Client{}, baseURL: srvURL}
}

func TestFacebookPublishTextOnly(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/feed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"page-1_post-9"}`))
	}))
	defer srv.Close()

	ref, err := newFacebookTest(srv.URL).Publish(context.Background(), "tok", "page-1", Content{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "page-1_post-9", ref.PlatformPostID)
	assert.Equal(t, "hello", got["message"])
	assert.Equal(t, "tok", got["access_token"])
}

func TestFacebookPublishSingleVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/videos", r.URL.Path)
		var got map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "https://cdn.example.com/clip.mp4", got["file_url"])
		assert.Equal(t, "watch this", got["description"])
		w.Write([]byte(`{"id":"vid-1"}`))
	}))
	defer srv.Close()

	ref, err := newFacebookTest(srv.URL).Publish(context.Background(), "tok", "page-1", Content{
		Text:      "watch this",
		MediaURLs: []string{"https://cdn.example.com/clip.mp4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "vid-1", ref.PlatformPostID)
}

func TestFacebookPublishMultipleImages(t *testing.T) {
	photoUploads := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1/photos":
			var got map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, false, got["published"], "photos are uploaded unpublished")
			photoUploads++
			fmt.Fprintf(w, `{"id":"photo-%d"}`, photoUploads)
		case "/page-1/feed":
			var got struct {
				AttachedMedia []map[string]string `json:"attached_media"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			require.Len(t, got.AttachedMedia, 2)
			assert.Equal(t, "photo-1", got.AttachedMedia[0]["media_fbid"])
			assert.Equal(t, "photo-2", got.AttachedMedia[1]["media_fbid"])
			w.Write([]byte(`{"id":"feed-post-1"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	ref, err := newFacebookTest(srv.URL).Publish(context.Background(), "tok", "page-1", Content{
		Text:      "album",
		MediaURLs: []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, photoUploads)
	assert.Equal(t, "feed-post-1", ref.PlatformPostID)
}

func TestFacebookGraphErrorBecomesPublishError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"(#100) Invalid parameter","type":"OAuthException","code":100}}`))
	}))
	defer srv.Close()

	_, err := newFacebookTest(srv.URL).Publish(context.Background(), "tok", "page-1", Content{Text: "x"})
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, Facebook, pubErr.Platform)
	assert.Contains(t, pubErr.ProviderMessage, "Invalid parameter")
}

func TestIsVideoURL(t *testing.T) {
	assert.True(t, isVideoURL("https://cdn.example.com/clip.mp4"))
	assert.True(t, isVideoURL("https://cdn.example.com/video/77"))
	assert.False(t, isVideoURL("https://cdn.example.com/a.png"))
}
