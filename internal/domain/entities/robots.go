package entities

// RobotsPolicy answers crawl permission questions for one origin.
type RobotsPolicy interface {
	// AllowsOrigin is false when the wildcard group disallows the whole origin.
	AllowsOrigin() bool
	// Allows reports whether the given path may be fetched.
	Allows(path string) bool
}

// AllowAllPolicy permits everything. It is used when robots.txt is missing or unreachable.
type AllowAllPolicy struct{}

func (AllowAllPolicy) AllowsOrigin() bool   { return true }
func (AllowAllPolicy) Allows(_ string) bool { return true }
