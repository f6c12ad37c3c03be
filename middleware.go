// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	cookiePrefix    = "shop_"
	cookieSessionID = cookiePrefix + "session-id"
	cookieMaxAge    = 60 * 60 * 48

	sharedSessionID = "12345678-1234-1234-1234-123456789123"
)

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local info = redis.call("HMGET", key, "tokens", "last_refill")
	local tokens = tonumber(info[1])
	local last_refill = tonumber(info[2])

	if tokens == nil then
		tokens = capacity
		last_refill = now
	end

	local delta = math.max(0, now - last_refill)
	local filled_tokens = math.min(capacity, tokens + (delta / 1000 * rate))

	local allowed = 0
	if filled_tokens >= requested then
		filled_tokens = filled_tokens - requested
		allowed = 1
		redis.call("HMSET", key, "tokens", filled_tokens, "last_refill", now)
		redis.call("EXPIRE", key, math.ceil(capacity / rate) * 2)
	end

	return allowed
`)

type ctxKeyLog struct{}
type ctxKeyRequestID struct{}
type ctxKeySessionID struct{}

type logHandler struct {
	log  *logrus.Logger
	next http.Handler
}

type responseRecorder struct {
	b      int
	status int
	w      http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.w.Write(p)
	r.b += n
	return n, err
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.w.WriteHeader(statusCode)
}

func (lh *logHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, _ := uuid.NewRandom()
	ctx = context.WithValue(ctx, ctxKeyRequestID{}, requestID.String())

	start := time.Now()
	rr := &responseRecorder{w: w}
	log := lh.log.WithFields(logrus.Fields{
		"http.req.path":   r.URL.Path,
		"http.req.method": r.Method,
		"http.req.id":     requestID.String(),
	})
	if v, ok := r.Context().Value(ctxKeySessionID{}).(string); ok {
		log = log.WithField("session", v)
	}
	log.Debug("request started")
	defer func() {
		log.WithFields(logrus.Fields{
			"http.resp.took_ms": int64(time.Since(start) / time.Millisecond),
			"http.resp.status":  rr.status,
			"http.resp.bytes":   rr.b}).Debugf("request complete")
	}()

	ctx = context.WithValue(ctx, ctxKeyLog{}, log)
	r = r.WithContext(ctx)
	lh.next.ServeHTTP(rr, r)
}

// ensureSessionID issues the session cookie on first contact. With a shared
// session every client lands in the same cart.
func ensureSessionID(shared bool, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		c, err := r.Cookie(cookieSessionID)
		if err == http.ErrNoCookie || (err == nil && c.Value == "") {
			if shared {
				sessionID = sharedSessionID
			} else {
				u, _ := uuid.NewRandom()
				sessionID = u.String()
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cookieSessionID,
				Value:    sessionID,
				MaxAge:   cookieMaxAge,
				Path:     "/",
				HttpOnly: true,
			})
		} else if err != nil {
			return
		} else {
			sessionID = c.Value
		}
		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, sessionID)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	}
}

// Limiter is a token bucket per key. Buckets live in Redis when a client is
// set so that replicas share them, in process otherwise.
type Limiter struct {
	client *redis.Client
	log    logrus.FieldLogger

	globalRate  float64
	globalBurst int
	ipRate      float64
	ipBurst     int

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func NewLimiter(client *redis.Client, cfg config, log logrus.FieldLogger) *Limiter {
	return &Limiter{
		client:      client,
		log:         log,
		globalRate:  cfg.globalRate,
		globalBurst: cfg.globalBurst,
		ipRate:      cfg.ipRate,
		ipBurst:     cfg.ipBurst,
		local:       make(map[string]*rate.Limiter),
	}
}

func (l *Limiter) Allow(ctx context.Context, key string, capacity int, r float64) (bool, error) {
	if l.client == nil {
		return l.localLimiter(key, capacity, r).Allow(), nil
	}
	now := time.Now().UnixMilli()

	keys := []string{fmt.Sprintf("rate_limit:%s", key)}
	args := []interface{}{capacity, r, now, 1}

	result, err := tokenBucketScript.Run(ctx, l.client, keys, args...).Int64()
	if err != nil {
		return false, errors.Wrap(err, "token bucket")
	}
	return result == 1, nil
}

func (l *Limiter) localLimiter(key string, capacity int, r float64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.local[key]
	if !ok {
		// unbounded growth is capped by dropping every bucket at once
		if len(l.local) > 10000 {
			l.local = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rate.Limit(r), capacity)
		l.local[key] = limiter
	}
	return limiter
}

// GlobalAndIPLimiter rejects with 503 when the whole service is over budget
// and 429 when one client is. Limiter errors let the request through.
func (l *Limiter) GlobalAndIPLimiter(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
		defer cancel()

		ip := getRealIP(r)

		globalAllowed, err := l.Allow(ctx, "global_storefront", l.globalBurst, l.globalRate)
		if err != nil {
			l.log.Warnf("global limiter redis error: %v", err)
		} else if !globalAllowed {
			renderHTTPError(l.log, r, w, errors.New("system busy"), http.StatusServiceUnavailable)
			return
		}

		ipAllowed, err := l.Allow(ctx, "ip:"+ip, l.ipBurst, l.ipRate)
		if err != nil {
			l.log.Warnf("ip limiter redis error: %v", err)
		} else if !ipAllowed {
			renderHTTPError(l.log.WithField("ip", ip), r, w, errors.New("too many requests"), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func getRealIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		// client, proxy1, proxy2
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip, _, _ = net.SplitHostPort(r.RemoteAddr)
	}
	return ip
}

func sessionID(r *http.Request) string {
	v := r.Context().Value(ctxKeySessionID{})
	if v != nil {
		return v.(string)
	}
	return ""
}

func requestLogger(r *http.Request) logrus.FieldLogger {
	if l, ok := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return l
	}
	return log
}
