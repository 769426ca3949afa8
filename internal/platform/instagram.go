package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type instagramPublisher struct {
	client  *http.Client
	baseURL string
}

func NewInstagramPublisher(client *http.Client) Publisher {
	return &instagramPublisher{client: client, baseURL: graphBaseURL}
}

// Publish runs the two-step Instagram flow: create a media container
// (or a carousel of containers), then publish it by creation id.
// Instagram requires media, so posts without any fail before the wire.
func (ig *instagramPublisher) Publish(ctx context.Context, accessToken, accountID string, content Content) (*PublishedRef, error) {
	if len(content.MediaURLs) == 0 {
		return nil, &ValidationError{Platform: Instagram, Reason: "posts require at least one image"}
	}

	var creationID string
	var err error
	if len(content.MediaURLs) == 1 {
		creationID, err = ig.createContainer(ctx, accessToken, accountID, map[string]interface{}{
			"image_url":    content.MediaURLs[0],
			"caption":      content.Text,
			"access_token": accessToken,
		})
	} else {
		creationID, err = ig.createCarousel(ctx, accessToken, accountID, content)
	}
	if err != nil {
		return nil, err
	}

	return ig.publishContainer(ctx, accessToken, accountID, creationID)
}

func (ig *instagramPublisher) createCarousel(ctx context.Context, accessToken, accountID string, content Content) (string, error) {
	children := make([]string, 0, len(content.MediaURLs))
	for _, mediaURL := range content.MediaURLs {
		id, err := ig.createContainer(ctx, accessToken, accountID, map[string]interface{}{
			"image_url":        mediaURL,
			"is_carousel_item": true,
			"access_token":     accessToken,
		})
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return ig.createContainer(ctx, accessToken, accountID, map[string]interface{}{
		"media_type":   "CAROUSEL",
		"children":     children,
		"caption":      content.Text,
		"access_token": accessToken,
	})
}

func (ig *instagramPublisher) createContainer(ctx context.Context, accessToken, accountID string, payload map[string]interface{}) (string, error) {
	url := fmt.Sprintf("%s/%s/media", ig.baseURL, accountID)
	respBody, err := ig.post(ctx, url, payload)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return "", &PublishError{Platform: Instagram, ProviderMessage: "no media container id returned"}
	}
	return result.ID, nil
}

func (ig *instagramPublisher) publishContainer(ctx context.Context, accessToken, accountID, creationID string) (*PublishedRef, error) {
	url := fmt.Sprintf("%s/%s/media_publish", ig.baseURL, accountID)
	respBody, err := ig.post(ctx, url, map[string]interface{}{
		"creation_id":  creationID,
		"access_token": accessToken,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return nil, &PublishError{Platform: Instagram, ProviderMessage: "no post id returned"}
	}

	return &PublishedRef{PlatformPostID: result.ID, Response: respBody}, nil
}

func (ig *instagramPublisher) post(ctx context.Context, url string, payload map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ig.client.Do(req)
	if err != nil {
		return nil, &PublishError{Platform: Instagram, ProviderMessage: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var gerr graphError
	if err := json.Unmarshal(respBody, &gerr); err == nil && gerr.Error.Message != "" {
		return nil, &PublishError{Platform: Instagram, ProviderMessage: gerr.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PublishError{Platform: Instagram, ProviderMessage: fmt.Sprintf("unexpected status code %d", resp.StatusCode)}
	}

	return respBody, nil
}
