package utils

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

const fallbackDeviceName = "device"

var (
	deviceNameInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)
	deviceNameHyphens = regexp.MustCompile(`-{2,}`)
)

// SanitizeDeviceName lowercases name and reduces it to letters, digits,
// hyphens and underscores, so it can label backups from this device.
func SanitizeDeviceName(name string) string {
	name = strings.ToLower(strings.Join(strings.Fields(name), "-"))
	name = deviceNameInvalid.ReplaceAllString(name, "")
	name = strings.Trim(deviceNameHyphens.ReplaceAllString(name, "-"), "-")
	if name == "" {
		return fallbackDeviceName
	}
	return name
}

// DefaultDeviceName is the name config.toml is seeded with: the hostname,
// else the login name, else "device".
func DefaultDeviceName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return SanitizeDeviceName(host)
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return SanitizeDeviceName(u.Username)
	}
	return fallbackDeviceName
}
