package cfg

import "time"

type Cfg struct {
	// Storage
	SourcesDir string
	DBPath     string

	// HTTP surface
	Port         string
	BaseUrl      string
	APIAccessKey string
	Serve        bool

	// Scheduling
	CompletionThreshold int
	RunMinutes          int
	ProgressInterval    int
	MaxRetries          int
	TrackingPrefixes    []string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// RunBudget is the wall-clock bound for one run, zero when unbounded.
func (c *Cfg) RunBudget() time.Duration {
	if c.RunMinutes <= 0 {
		return 0
	}
	return time.Duration(c.RunMinutes) * time.Minute
}

func (c *Cfg) GetProgressInterval() time.Duration {
	if c.ProgressInterval <= 0 {
		return 0
	}
	return time.Duration(c.ProgressInterval) * time.Second
}
