package model

// Queue names for scrape task dispatch, keyed by classification.
const (
	QueueScrapeJob  = "scrape.job"
	QueueScrapePost = "scrape.post"
)

// ScrapeTask is the message sent to a scrape queue. The payload is a fixed
// typed record rather than an open-ended map so shape drift is caught at
// compile time.
type ScrapeTask struct {
	LinkID  int64  `json:"link_id"`
	URL     string `json:"url"`
	Attempt int    `json:"attempt"`
}

// QueueFor returns the scrape queue for a classification, or "" when the
// classification is not routable.
func QueueFor(c Classification) string {
	switch c {
	case ClassJob:
		return QueueScrapeJob
	case ClassPost:
		return QueueScrapePost
	default:
		return ""
	}
}

// ClassificationFor is the inverse of QueueFor.
func ClassificationFor(queue string) Classification {
	switch queue {
	case QueueScrapeJob:
		return ClassJob
	case QueueScrapePost:
		return ClassPost
	default:
		return ClassUnknown
	}
}
