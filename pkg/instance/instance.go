package instance

import "os"

// GetID returns a stable identifier for this process, used as the lock
// holder for media processing and as a log field. Falls back to the
// hostname, then a fixed default.
func GetID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local-0"
}
