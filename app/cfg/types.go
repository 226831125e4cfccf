package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	PlatformsFile  string
	Port           string
	APIAccessKey   string
	DefaultCity    string
	DefaultLimit   int
	FullValidation bool
	HarvestOnStart bool
	BrowserEnabled bool
	OutboundRPS    float64

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
