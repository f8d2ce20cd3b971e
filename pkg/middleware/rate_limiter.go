package middleware

import (
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/gin-gonic/gin"
)

// RateLimit builds a per-client-IP limiter from a formatted rate like
// "120-M" (120 requests per minute). An invalid format falls back to
// a pass-through handler so a bad env value never takes the API down.
func RateLimit(formatted string) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}
	return mgin.NewMiddleware(limiter.New(memory.NewStore(), rate))
}
