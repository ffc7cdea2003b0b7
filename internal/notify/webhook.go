// internal/notify/webhook.go
//
// Webhook HTTP client: retryablehttp with zap as its leveled logger.

package notify

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

func newWebhookClient(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = timeout
	c.Logger = leveled{zap.S().Named("webhook")}
	return c
}

// leveled adapts zap to retryablehttp.LeveledLogger.
type leveled struct{ s *zap.SugaredLogger }

func (l leveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
