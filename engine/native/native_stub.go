//go:build !((linux || darwin) && (amd64 || arm64))

package native

import "github.com/opd-ai/inferbridge/status"

// ProviderName is the registry name the native backend registers under.
const ProviderName = "native"

// Load is unavailable on this platform; hosts must register an
// in-process provider instead.
func Load(path string) error {
	return status.New(status.NotInitialized, "native engine loading is not supported on this platform")
}
