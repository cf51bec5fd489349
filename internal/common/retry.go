package common

import (
	"context"
	"database/sql"
	"time"
)

// IsTemporary 判断是否为临时性错误
func IsTemporary(err error) bool {
	if temp, ok := err.(interface{ Temporary() bool }); ok {
		return temp.Temporary()
	}
	return false
}

// IsRetryable 判断是否可重试
func IsRetryable(err error) bool {
	if retryable, ok := err.(interface{ Retryable() bool }); ok {
		return retryable.Retryable()
	}
	return IsTemporary(err) || err == sql.ErrConnDone
}

// WithRetry 通用重试机制，指数退避
// 只对可重试错误（网络超时、网关 5xx）重试，其余错误立即返回
func WithRetry(ctx context.Context, operation func() error, maxRetries int) error {
	var err error
	backoff := 500 * time.Millisecond
	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
