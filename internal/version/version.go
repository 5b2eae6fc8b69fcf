// ABOUTME: Build and product identification
// ABOUTME: Used for the HTTP User-Agent and the TUI header
package version

// Version is overridden at build time with -ldflags "-X .../version.Version=..."
var Version = "0.1.0"

// Product is the display name
const Product = "Uptime Clock"

// UserAgent identifies this client to the uptime service
func UserAgent() string {
	return "uptime-go/" + Version
}
