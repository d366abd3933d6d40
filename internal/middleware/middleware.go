package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/akolanti/ThreadQA/internal/adapter/utils"
	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

type options struct {
	authToken    string
	noAuthBypass bool
	limiter      *IPRateLimiter
}

var (
	optsMu sync.RWMutex
	opts   options
)

// Configure applies the server settings. Until it is called every authenticated route rejects requests.
func Configure(settings config.Settings) {
	o := options{
		authToken:    settings.Server.AuthToken,
		noAuthBypass: settings.Server.NoAuthBypass,
	}
	if settings.Server.RateLimit {
		o.limiter = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND, config.RateLimiterIdleTTL)
	}
	optsMu.Lock()
	opts = o
	optsMu.Unlock()
}

func current() options {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts
}

// Wrap runs trace injection, bearer auth and rate limiting before next.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, true)
}

// WrapPublic is Wrap without authentication, for health checks.
func WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, false)
}

func wrap(next http.HandlerFunc, withAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, withAuth)

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(utils.RoutePattern(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct, withAuth bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received")

	steps := []func(requestResponseStruct) requestResponseStruct{injectTrace, rateLimiter}
	if withAuth {
		steps = []func(requestResponseStruct) requestResponseStruct{injectTrace, authenticate, rateLimiter}
	}
	for _, step := range steps {
		re = step(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	return re
}
