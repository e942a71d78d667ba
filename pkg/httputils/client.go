package httputils

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

// NewRetryableHttpClient returns a standard client that retries transient
// failures. Every attempt, retries included, waits on rl.
func NewRetryableHttpClient(timeout time.Duration, rl ratelimit.Limiter, log *logrus.Entry) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = &logAdapter{log: log}
	retryClient.RequestLogHook = func(l retryablehttp.Logger, req *http.Request, attempt int) {
		if rl != nil {
			rl.Take()
		}
		if attempt > 0 {
			log.Debugf("Retrying %s %s (attempt %d)", req.Method, req.URL.Host, attempt)
		}
	}

	return retryClient.StandardClient()
}

type logAdapter struct {
	log *logrus.Entry
}

func (l *logAdapter) Printf(format string, v ...interface{}) {
	l.log.Tracef(format, v...)
}
