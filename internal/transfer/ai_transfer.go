package transfer

type GenerateRequest struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
}

type GeneratedContent struct {
	Content      string   `json:"content"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"call_to_action"`
}

type OllamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type OllamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}
