package entity

// Video is one recent upload of the resolved channel, produced by the
// fetcher and consumed by the improver and the notifier.
type Video struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Thumbnail   string `json:"thumbnail"`
}

// ImprovedTitle is the model's suggestion for one video, correlated back
// to its source video by id, not by array position.
type ImprovedTitle struct {
	Original  string `json:"original"`
	Improved  string `json:"improved"`
	Rationale string `json:"rationale"`
	URL       string `json:"url"`
}

// ChannelRef is the outcome of resolving a handle or search term.
type ChannelRef struct {
	ID   string `json:"channelId"`
	Name string `json:"channelName"`
}
