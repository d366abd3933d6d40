package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/ThreadQA/internal/config"
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

var once sync.Once
var sharedClient *http.Client

// GetClient returns the pooled client shared by the generation and embedding SDKs.
// Per-call deadlines come from the request context, so no client-wide Timeout is set.
func GetClient() *http.Client {
	once.Do(func() {
		sharedClient = &http.Client{Transport: customTransport}
	})
	return sharedClient
}
