package ratelimit

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/didip/tollbooth_gin"
	"github.com/gin-gonic/gin"
)

// TokenBucketPerIP throttles callers per IP. bKash redirects and
// webhook retries for a single payment arrive seconds apart, so the
// ceiling stays low by default.
func TokenBucketPerIP() gin.HandlerFunc {
	message := map[string]any{
		"message": "Too many payment requests. Please slow down.",
	}
	jsonMessage, _ := json.Marshal(message)

	rate := 10.0
	if configured := os.Getenv("RATE_LIMIT_PER_SECOND"); configured != "" {
		if parsed, err := strconv.ParseFloat(configured, 64); err == nil && parsed > 0 {
			rate = parsed
		}
	}

	tlbthLimiter := tollbooth.NewLimiter(rate, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Minute * 1,
	})
	tlbthLimiter.SetMessageContentType("application/json")
	tlbthLimiter.SetMessage(string(jsonMessage))

	return tollbooth_gin.LimitHandler(tlbthLimiter)
}
