// Package util contains helpers shared by integrations
package util

import (
	"net/http"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Log returns the SugaredLogger that can be used accross integrations
func Log() *zap.SugaredLogger {
	return zap.L().Sugar()
}

// EnsureViperSub will return a viper sub if available or create one
func EnsureViperSub(viper *viper.Viper, key string) *viper.Viper {
	sub := viper.Sub(key)
	if sub != nil {
		return sub
	}
	fakeSub := make(map[string]interface{})
	viper.Set(key, fakeSub)
	return viper.Sub(key)
}

// UniqueFold returns s without empty and case-insensitive duplicate entries, order is kept
func UniqueFold(s []string) []string {
	seen := make(map[string]bool)
	unique := make([]string, 0, len(s))
	for _, a := range s {
		if len(a) == 0 {
			continue
		}
		k := strings.ToLower(a)
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, a)
	}
	return unique
}

// StrPointer returns a pointer to s
func StrPointer(s string) *string {
	return &s
}

// AuthedTransport sets a static Authorization header on every request
type AuthedTransport struct {
	Key     string
	Wrapped http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *AuthedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", t.Key)
	return t.Wrapped.RoundTrip(req)
}

// ZapLeveledLogger adapts the zap SugaredLogger to key-value leveled logger interfaces
type ZapLeveledLogger struct {
	Logger *zap.SugaredLogger
}

// Error logs on error level
func (l *ZapLeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Errorw(msg, keysAndValues...)
}

// Info logs on info level
func (l *ZapLeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Infow(msg, keysAndValues...)
}

// Debug logs on debug level
func (l *ZapLeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debugw(msg, keysAndValues...)
}

// Warn logs on warn level
func (l *ZapLeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warnw(msg, keysAndValues...)
}
