package engine

// --- MCP tool types ---

type VideoResolveInput struct {
	URL string `json:"url" jsonschema:"YouTube link in any common form (watch, youtu.be, embed, shorts, legacy)"`
}

type VideoResolveOutput struct {
	Found    bool   `json:"found"`
	VideoID  string `json:"video_id,omitempty"`
	WatchURL string `json:"watch_url,omitempty"`
	EmbedURL string `json:"embed_url,omitempty"`
}

type TeachingVideoAnalyzeInput struct {
	URL    string `json:"url" jsonschema:"YouTube link of the teaching video to analyze"`
	Format string `json:"format,omitempty" jsonschema:"Extra rendering: markdown (default) or none"`
}

type TeachingVideoAnalyzeOutput struct {
	Analysis Analysis `json:"analysis"`
	Markdown string   `json:"markdown,omitempty"`
}
