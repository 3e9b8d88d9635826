package unleash

// Subset of github.com/Unleash/unleash-client-go/v3/api

// Feature is a feature toggle as returned by the client API
type Feature struct {
	// Name is the name of the feature toggle.
	Name string `yaml:"name"`

	// Description is a description of the feature toggle.
	Description string `yaml:"description"`

	// Enabled indicates whether the feature was enabled or not.
	Enabled bool `yaml:"enabled"`

	// Strategies is a list of names of the strategies supported by the client.
	Strategies []Strategy `yaml:"strategies"`
}

// Strategy is an activation strategy of a feature toggle
type Strategy struct {
	// Name is the name of the strategy.
	Name string `yaml:"name"`

	// Parameters is the parameters of the strategy.
	Parameters map[string]interface{} `yaml:"parameters"`
}
