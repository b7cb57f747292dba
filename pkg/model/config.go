package model

// Config is the project configuration. Version, title, owner and
// description pass through to the document summary untouched.
type Config struct {
	ThreatDragonVersion string          `yaml:"threat_dragon_version" json:"threat_dragon_version" toml:"threat_dragon_version"`
	Title               string          `yaml:"title" json:"title" toml:"title" validate:"required"`
	Owner               string          `yaml:"owner" json:"owner" toml:"owner"`
	Description         string          `yaml:"description" json:"description" toml:"description"`
	Diagrams            []SubScope      `yaml:"diagrams" json:"diagrams" toml:"diagrams" validate:"dive"`
	TrustBoundaries     []TrustBoundary `yaml:"trust_boundaries" json:"trust_boundaries" toml:"trust_boundaries" validate:"dive"`
	Assets              []Asset         `yaml:"assets" json:"assets" toml:"assets" validate:"dive"`
}

// SubScope declares a child diagram restricted to Nodes of the diagram
// titled Parent.
type SubScope struct {
	Name        string   `yaml:"name" json:"name" toml:"name" validate:"required"`
	Parent      string   `yaml:"parent" json:"parent" toml:"parent" validate:"required"`
	Description string   `yaml:"description" json:"description" toml:"description"`
	Nodes       []string `yaml:"nodes" json:"nodes" toml:"nodes"`
}

// TrustBoundary describes a named security domain.
type TrustBoundary struct {
	Name                 string `yaml:"name" json:"name" toml:"name" validate:"required"`
	Description          string `yaml:"description" json:"description" toml:"description"`
	LimitOfAccess        string `yaml:"limit_of_access" json:"limit_of_access" toml:"limit_of_access"`
	LevelOfAuthorization string `yaml:"level_of_authorization" json:"level_of_authorization" toml:"level_of_authorization"`
}

// Asset is something of value that nodes store or process.
type Asset struct {
	Name        string `yaml:"name" json:"name" toml:"name" validate:"required"`
	Description string `yaml:"description" json:"description" toml:"description"`
}

// TrustBoundary returns the last definition with the given name.
func (c *Config) TrustBoundary(name string) (TrustBoundary, bool) {
	for i := len(c.TrustBoundaries) - 1; i >= 0; i-- {
		if c.TrustBoundaries[i].Name == name {
			return c.TrustBoundaries[i], true
		}
	}
	return TrustBoundary{}, false
}

// Asset returns the last definition with the given name.
func (c *Config) Asset(name string) (Asset, bool) {
	for i := len(c.Assets) - 1; i >= 0; i-- {
		if c.Assets[i].Name == name {
			return c.Assets[i], true
		}
	}
	return Asset{}, false
}
