package webview

import "fmt"

// The portal rejects obviously automated or outdated clients; loading
// strategies vary the browsing context and advertised Chrome build until the
// page renders.

// stableChromeVersion is the known-good fallback build advertised when the
// latest-version strategies fail.
const stableChromeVersion = "120.0.6099.230"

// latestChromeVersion is bumped with releases; strategies using it present
// a current client.
const latestChromeVersion = "127.0.6533.100"

// Strategy is one way of presenting the embedded page to the portal.
type Strategy struct {
	Name      string
	Incognito bool
	UserAgent string
}

func userAgent(version string) string {
	return fmt.Sprintf("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", version)
}

// strategies returns the rotation order: fresh context with a current
// client first, then a cached context, then a fresh context with the stable
// fallback build.
func strategies() []Strategy {
	return []Strategy{
		{Name: "incognito_latest", Incognito: true, UserAgent: userAgent(latestChromeVersion)},
		{Name: "cached_latest", Incognito: false, UserAgent: userAgent(latestChromeVersion)},
		{Name: "incognito_stable", Incognito: true, UserAgent: userAgent(stableChromeVersion)},
	}
}
