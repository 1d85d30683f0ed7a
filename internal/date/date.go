// Package date provides the cached value of the HTTP Date header.
package date

import (
	"net/http"
	"sync/atomic"
	"time"
)

type stamp struct {
	sec   int64
	value []byte
}

var current atomic.Pointer[stamp]

// Current returns the Date header value for the current second. The returned
// slice must not be modified.
func Current() []byte {
	return at(time.Now())
}

func at(now time.Time) []byte {
	sec := now.Unix()
	if s := current.Load(); s != nil && s.sec == sec {
		return s.value
	}
	s := &stamp{sec: sec, value: []byte(now.UTC().Format(http.TimeFormat))}
	current.Store(s)
	return s.value
}
