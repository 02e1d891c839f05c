package generator

// Config drives the seed folder generator.
type Config struct {
	NumOwners          int
	FoldersPerOwner    int
	MaxItemsPerFolder  int
	SharedTokenChance  float64
	PublicFolderChance float64
	Seed               int64
}

// DefaultConfig returns a modest dataset for local development.
func DefaultConfig() Config {
	return Config{
		NumOwners:          50,
		FoldersPerOwner:    3,
		MaxItemsPerFolder:  12,
		SharedTokenChance:  0.3,
		PublicFolderChance: 0.25,
		Seed:               42,
	}
}
