package db

type AggregateStat struct {
	// Bucket label, formatted with BucketLabelLayout in the requested timezone.
	X         string `json:"x"`
	Pageviews int64  `json:"pageviews"`
	Sessions  int64  `json:"sessions"`
	Clicks    int64  `json:"clicks"`
}

type LinkClickStat struct {
	Event   string `json:"event"`
	LinkURL string `json:"link_url"`
	Clicks  int64  `json:"clicks"`
}

type DayStats struct {
	Day       string `json:"day"`
	Pageviews int64  `json:"pageviews"`
	Visitors  int64  `json:"visitors"`
	Visits    int64  `json:"visits"`
	Bounces   int64  `json:"bounces"`
	// Seconds.
	TotalTime int64 `json:"totaltime"`
}

const ClickCountLabel = "click"

type ClickCount struct {
	// Always ClickCountLabel.
	X string `json:"x"`
	// Bucket label.
	T string `json:"t"`
	Y int64  `json:"y"`
}

type XY struct {
	X string `json:"x"`
	Y int64  `json:"y"`
}

type LinkClicks struct {
	CustomLinkClicks []XY `json:"customLinkClicks"`
	SocialLinkClicks []XY `json:"socialLinkClicks"`
}

// Splits link click rows by event name, keeping their order.
func SplitLinkClicks(stats []LinkClickStat) LinkClicks {
	linkClicks := LinkClicks{CustomLinkClicks: []XY{}, SocialLinkClicks: []XY{}}

	for _, stat := range stats {
		switch stat.Event {
		case EventNameCustomLinkClick:
			linkClicks.CustomLinkClicks = append(
				linkClicks.CustomLinkClicks,
				XY{X: stat.LinkURL, Y: stat.Clicks},
			)
		case EventNameSocialLinkClick:
			linkClicks.SocialLinkClicks = append(
				linkClicks.SocialLinkClicks,
				XY{X: stat.LinkURL, Y: stat.Clicks},
			)
		}
	}

	return linkClicks
}
