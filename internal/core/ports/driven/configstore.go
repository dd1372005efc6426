package driven

// ConfigStore provides access to engine settings. Keys use dot
// notation ("pool.limit", "notion.token"); implementations handle
// persistence and type conversion.
type ConfigStore interface {
	// Get retrieves a value by key. The boolean reports existence.
	Get(key string) (any, bool)

	// GetString returns "" if the key is missing or not a string.
	GetString(key string) string

	// GetInt returns 0 if the key is missing or not an integer.
	GetInt(key string) int

	// GetFloat returns 0 if the key is missing or not numeric.
	GetFloat(key string) float64

	// GetBool returns false if the key is missing or not a boolean.
	GetBool(key string) bool

	// GetStringSlice returns nil if the key is missing or not a slice.
	GetStringSlice(key string) []string

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Load reads settings from storage.
	Load() error

	// Path returns the backing file path.
	Path() string
}
