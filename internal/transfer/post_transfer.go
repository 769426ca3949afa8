package transfer

// PostCreation is the multipart form payload for creating a post.
// PlatformVariants is a JSON object keyed by platform name.
type PostCreation struct {
	Content          string
	TargetPlatforms  string
	SelectedAccounts string
	ScheduledFor     string
	PlatformVariants string
}

type VariantPayload struct {
	Content      string   `json:"content"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"call_to_action"`
}
