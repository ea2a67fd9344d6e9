package utils

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Calling window constants
const (
	// MinutesPerDay is the number of minutes in one day; calling window times
	// are minutes-from-midnight in [0, MinutesPerDay)
	MinutesPerDay = 24 * 60
)
