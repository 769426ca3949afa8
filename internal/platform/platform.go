package platform

import (
	"encoding/json"
	"fmt"
)

// Platform identifies a supported social network. The set is closed:
// adding a network means adding a constant here and a Publisher for it.
type Platform string

const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	Linkedin  Platform = "linkedin"
)

func Parse(s string) (Platform, error) {
	switch Platform(s) {
	case Facebook, Instagram, Linkedin:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unsupported platform: %q", s)
}

func (p Platform) String() string {
	return string(p)
}

// All lists every supported platform in a stable order.
func All() []Platform {
	return []Platform{Facebook, Instagram, Linkedin}
}

// Content is the normalized payload handed to a Publisher. Character
// limits are advisory and enforced at compose time, never here.
type Content struct {
	Text         string   `json:"text"`
	MediaURLs    []string `json:"media_urls"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"call_to_action"`
}

// Identity is the uniform account shape produced from each provider's
// profile response, whatever its source looked like.
type Identity struct {
	ExternalAccountID string
	DisplayName       string
	Username          string
	AvatarURL         string
}

// PublishedRef records a successful publish call.
type PublishedRef struct {
	PlatformPostID string
	Response       json.RawMessage
}
