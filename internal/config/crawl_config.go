package config

// CrawlConfig holds limits that apply to a whole crawl run
type CrawlConfig struct {
	// Deadline for one request including every page it fetches
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout" validate:"min=0"`
}

func NewDefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		RequestTimeout: Duration(DefaultCrawlRequestTimeout),
	}
}
