package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const linkedinBaseURL = "https://api.linkedin.com"

type linkedinPublisher struct {
	client  *http.Client
	baseURL string
}

func NewLinkedinPublisher(client *http.Client) Publisher {
	return &linkedinPublisher{client: client, baseURL: linkedinBaseURL}
}

type linkedinShareContent struct {
	ShareCommentary    linkedinText    `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []linkedinMedia `json:"media,omitempty"`
}

type linkedinText struct {
	Text string `json:"text"`
}

type linkedinMedia struct {
	Status      string       `json:"status"`
	Description linkedinText `json:"description"`
	Media       string       `json:"media"`
	Title       linkedinText `json:"title"`
}

type linkedinUGCPost struct {
	Author          string                          `json:"author"`
	LifecycleState  string                          `json:"lifecycleState"`
	SpecificContent map[string]linkedinShareContent `json:"specificContent"`
	Visibility      map[string]string               `json:"visibility"`
}

// Publish creates one UGC post. Visibility is always PUBLIC and the media
// category switches on whether the content carries images.
func (li *linkedinPublisher) Publish(ctx context.Context, accessToken, personID string, content Content) (*PublishedRef, error) {
	share := linkedinShareContent{
		ShareCommentary:    linkedinText{Text: content.Text},
		ShareMediaCategory: "NONE",
	}
	if len(content.MediaURLs) > 0 {
		share.ShareMediaCategory = "IMAGE"
		for _, mediaURL := range content.MediaURLs {
			share.Media = append(share.Media, linkedinMedia{
				Status:      "READY",
				Description: linkedinText{Text: "Image"},
				Media:       mediaURL,
				Title:       linkedinText{Text: "Image"},
			})
		}
	}

	post := linkedinUGCPost{
		Author:         fmt.Sprintf("urn:li:person:%s", personID),
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]linkedinShareContent{
			"com.linkedin.ugc.ShareContent": share,
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, li.baseURL+"/v2/ugcPosts", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := li.client.Do(req)
	if err != nil {
		return nil, &PublishError{Platform: Linkedin, ProviderMessage: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Message string `json:"message"`
		}
		message := fmt.Sprintf("unexpected status code %d", resp.StatusCode)
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		return nil, &PublishError{Platform: Linkedin, ProviderMessage: message}
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return nil, &PublishError{Platform: Linkedin, ProviderMessage: "no post id returned"}
	}

	return &PublishedRef{PlatformPostID: result.ID, Response: respBody}, nil
}
