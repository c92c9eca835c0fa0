package utils

import "time"

// AvailabilityCachePrefix is the prefix used for Redis availability-window
// cache keys.
const AvailabilityCachePrefix = "avail:"

// AvailabilityCacheTTL bounds how stale a cached channel-manager window may
// get before it is refetched.
const AvailabilityCacheTTL = 10 * time.Minute
