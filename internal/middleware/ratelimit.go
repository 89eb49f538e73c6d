package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
)

// RateLimit throttles requests per client IP. rate uses the limiter format,
// e.g. "20-M" for twenty requests a minute.
func RateLimit(rate string) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	instance := limiter.New(memory.NewStore(), parsed)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			apierrors.TooManyRequests(c, "Too many attempts, try again later")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			_ = c.Error(err)
			apierrors.InternalError(c, "")
		}),
	), nil
}
