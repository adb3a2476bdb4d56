package types

// Journal sink kinds
const (
	JournalSinkLog   = "log"
	JournalSinkMongo = "mongo"
)

// Config is the configuration of the audit serialization engine
type Config struct {
	// LogLevel is a zerolog level name (trace, debug, info, warn, error)
	LogLevel string `json:"logLevel" yaml:"logLevel"`

	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Journal JournalConfig `json:"journal" yaml:"journal"`

	// Roles maps a role name to the actions it grants
	Roles map[string][]Action `json:"roles" yaml:"roles"`
}

// MetricsConfig holds prometheus settings
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// JournalConfig holds settings of the audit journal sink
type JournalConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Sink       string `json:"sink" yaml:"sink"`
	MongoURI   string `json:"mongoUri,omitempty" yaml:"mongoUri,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Metrics: MetricsConfig{
			Namespace: "audit_serializer",
		},
		Journal: JournalConfig{
			Sink:       JournalSinkLog,
			Database:   "audit",
			Collection: "journal",
		},
		Roles: map[string][]Action{
			"auditor": {ActionAuditRead},
			"admin":   {ActionAuditRead, ActionAuditReadFull},
		},
	}
}
