package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const graphBaseURL = "https://graph.facebook.com/v18.0"

type graphError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

type facebookPublisher struct {
	client  *http.Client
	baseURL string
}

func NewFacebookPublisher(client *http.Client) Publisher {
	return &facebookPublisher{client: client, baseURL: graphBaseURL}
}

// Publish posts to a Facebook page. A lone video goes through the videos
// endpoint, images are uploaded unpublished and attached to a single feed
// post, and plain text goes straight to the feed.
func (f *facebookPublisher) Publish(ctx context.Context, accessToken, pageID string, content Content) (*PublishedRef, error) {
	if len(content.MediaURLs) == 1 && isVideoURL(content.MediaURLs[0]) {
		return f.publishVideo(ctx, accessToken, pageID, content)
	}
	if len(content.MediaURLs) > 0 {
		return f.publishWithPhotos(ctx, accessToken, pageID, content)
	}
	return f.publishFeed(ctx, accessToken, pageID, content, nil)
}

func (f *facebookPublisher) publishFeed(ctx context.Context, accessToken, pageID string, content Content, photoIDs []string) (*PublishedRef, error) {
	payload := map[string]interface{}{
		"message":      content.Text,
		"access_token": accessToken,
	}
	if len(photoIDs) > 0 {
		attached := make([]map[string]string, 0, len(photoIDs))
		for _, id := range photoIDs {
			attached = append(attached, map[string]string{"media_fbid": id})
		}
		payload["attached_media"] = attached
	}

	url := fmt.Sprintf("%s/%s/feed", f.baseURL, pageID)
	return f.post(ctx, url, payload)
}

func (f *facebookPublisher) publishVideo(ctx context.Context, accessToken, pageID string, content Content) (*PublishedRef, error) {
	payload := map[string]interface{}{
		"description":  content.Text,
		"file_url":     content.MediaURLs[0],
		"access_token": accessToken,
	}

	url := fmt.Sprintf("%s/%s/videos", f.baseURL, pageID)
	return f.post(ctx, url, payload)
}

// publishWithPhotos uploads each image as an unpublished photo, then
// creates one feed post carrying the returned media fbids.
func (f *facebookPublisher) publishWithPhotos(ctx context.Context, accessToken, pageID string, content Content) (*PublishedRef, error) {
	photoIDs := make([]string, 0, len(content.MediaURLs))
	for _, mediaURL := range content.MediaURLs {
		payload := map[string]interface{}{
			"url":          mediaURL,
			"published":    false,
			"access_token": accessToken,
		}
		ref, err := f.post(ctx, fmt.Sprintf("%s/%s/photos", f.baseURL, pageID), payload)
		if err != nil {
			return nil, err
		}
		photoIDs = append(photoIDs, ref.PlatformPostID)
	}
	return f.publishFeed(ctx, accessToken, pageID, content, photoIDs)
}

func (f *facebookPublisher) post(ctx context.Context, url string, payload map[string]interface{}) (*PublishedRef, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &PublishError{Platform: Facebook, ProviderMessage: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var gerr graphError
	if err := json.Unmarshal(respBody, &gerr); err == nil && gerr.Error.Message != "" {
		return nil, &PublishError{Platform: Facebook, ProviderMessage: gerr.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PublishError{Platform: Facebook, ProviderMessage: fmt.Sprintf("unexpected status code %d", resp.StatusCode)}
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return nil, &PublishError{Platform: Facebook, ProviderMessage: "no post id returned"}
	}

	return &PublishedRef{PlatformPostID: result.ID, Response: respBody}, nil
}

func isVideoURL(u string) bool {
	return strings.Contains(u, ".mp4") || strings.Contains(u, "video")
}
