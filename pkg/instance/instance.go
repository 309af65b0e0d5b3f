package instance

import "os"

const envInstanceID = "AREPERA_INSTANCE_ID"

// ID identifies this process in logs. AREPERA_INSTANCE_ID wins over the host name.
func ID(service string) string {
	if id := os.Getenv(envInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return service + "@" + host
	}
	return service + "-0"
}
