// ABOUTME: Version and product constants
// ABOUTME: Single source of truth for client identification
package version

const (
	// Version is the client software version
	Version = "0.1.0"

	// Product is the product name reported in the session handshake
	Product = "PromptJam Player"

	// Manufacturer identifies the vendor
	Manufacturer = "PromptJam"
)
