package config

// ConfigBackend is where non-secret settings persist between runs: the
// UserDefaults domain on macOS, a JSON file under $XDG_CONFIG_HOME elsewhere.
// Keys are dotted ("server.port"). ok is false when a key was never set.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
