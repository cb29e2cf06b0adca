package model

// Sample is a project sample as returned by the roster endpoint.
// Name is only used for matching and display and is not unique.
type Sample struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	// Fields holds every other project-supplied attribute untouched.
	Fields map[string]interface{} `json:"-" mapstructure:",remain"`
}

// SampleIDs returns the ids of samples in order.
func SampleIDs(samples []Sample) []string {
	ids := make([]string, len(samples))
	for i, s := range samples {
		ids[i] = s.ID
	}
	return ids
}

// SampleNames returns the names of samples in order.
func SampleNames(samples []Sample) []string {
	names := make([]string, len(samples))
	for i, s := range samples {
		names[i] = s.Name
	}
	return names
}
