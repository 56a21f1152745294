package cache

import "time"

// TTL constants for market data.
const (
	TTLLivePrice = 60 * time.Second // Live quotes, also the default for MARKET_DATA_CACHE_TTL
	TTLIntraday  = 5 * time.Minute  // 5min bars only change once per interval
	TTLDaily     = time.Hour        // Daily bars change once per session
	TTLSearch    = 24 * time.Hour   // Symbol search results are stable
)
