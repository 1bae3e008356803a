package bridge

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vb-2003/rebase-ledger/internal/models"
)

// routeLimiter is one direction of one route's token bucket. Buckets are
// per route per direction and never shared. A disabled bucket admits
// everything.
type routeLimiter struct {
	cfg models.LimiterConfig
	lim *rate.Limiter
}

func newRouteLimiter(cfg models.LimiterConfig) *routeLimiter {
	rl := &routeLimiter{cfg: cfg}
	if cfg.Enabled {
		// The bucket starts full at its capacity.
		rl.lim = rate.NewLimiter(rate.Limit(cfg.RefillPerSecond), int(cfg.Capacity))
	}
	return rl
}

// allow consumes tokens for amount at the given instant. Fractional amounts
// round up so the bucket is never undercharged.
func (rl *routeLimiter) allow(now time.Time, amount decimal.Decimal) bool {
	if !rl.cfg.Enabled {
		return true
	}
	if !amount.IsPositive() {
		return true
	}
	// Compare in decimal first: IntPart wraps above 2^63, and a wrapped
	// negative charge would slip past an enabled bucket.
	if amount.GreaterThan(decimal.NewFromInt(rl.cfg.Capacity)) {
		return false
	}
	return rl.lim.AllowN(now, int(amount.Ceil().IntPart()))
}

// tokensFor reports the charge allow would apply, for error payloads.
// Amounts beyond int64 saturate instead of wrapping.
func tokensFor(amount decimal.Decimal) int64 {
	if amount.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return math.MaxInt64
	}
	return amount.Ceil().IntPart()
}
