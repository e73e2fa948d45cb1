package apify

type runSyncRequest struct {
	StartURLs          []startURL `json:"startUrls"`
	IncludeRecentPosts bool       `json:"includeRecentPosts"`
	MaxPosts           int        `json:"maxPosts"`
}

type startURL struct {
	URL string `json:"url"`
}

type profileItem struct {
	RecentPosts []recentPost `json:"recentPosts"`
}

type recentPost struct {
	Text string `json:"text"`
}
