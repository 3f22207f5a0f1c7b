package social

import (
	"fmt"
	"strings"
)

// Platform identifies one of the supported social networks.
type Platform string

const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	YouTube   Platform = "youtube"
)

// Platforms returns every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{Facebook, Instagram, Twitter, LinkedIn, YouTube}
}

// ParsePlatform maps a user supplied name to a Platform.
// "x" is accepted as an alias for twitter.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case Facebook, Instagram, Twitter, LinkedIn, YouTube:
		return p, nil
	case "x":
		return Twitter, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

func (p Platform) String() string {
	return string(p)
}

// EnvPrefix returns the upper-case prefix used for per-platform settings.
func (p Platform) EnvPrefix() string {
	return strings.ToUpper(string(p))
}
