package todoist

// Config holds the connection settings for a Todoist account. Publisher
// payloads can carry their own Config to override the daemon-wide defaults
// for a single job.
type Config struct {
	// APIKey is the Todoist API token used to authenticate requests.
	APIKey string `yaml:"api_key" json:"api_key,omitempty"`

	// Project is the name of the project tasks are filed under. Tasks go to
	// "Inbox" when empty.
	Project string `yaml:"project" json:"project,omitempty"`

	// Section is the name of the section within Project tasks are filed
	// under. Tasks are not sectioned when empty.
	Section string `yaml:"section" json:"section,omitempty"`
}

// Merge combines c with a per-job override. Fields set on other win; fields
// left empty fall back to c.
func (c Config) Merge(other Config) Config {
	if other.APIKey != "" {
		c.APIKey = other.APIKey
	}
	if other.Project != "" {
		c.Project = other.Project
	}
	if other.Section != "" {
		c.Section = other.Section
	}
	return c
}
