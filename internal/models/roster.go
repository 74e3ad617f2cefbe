package models

// RosterAsset is one monitored resource as declared in the roster config.
type RosterAsset struct {
	Type              AssetType `mapstructure:"type"`
	URL               string    `mapstructure:"url"`
	CrawlFrequency    string    `mapstructure:"crawl_frequency"`
	PriorityThreshold Priority  `mapstructure:"priority_threshold"`
}

// RosterCompetitor is one competitor entry from the roster config.
type RosterCompetitor struct {
	Name    string        `mapstructure:"name"`
	BaseURL string        `mapstructure:"base_url"`
	Assets  []RosterAsset `mapstructure:"assets"`
}
