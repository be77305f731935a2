package auth

import (
	"sync"
	"time"
)

// RateLimiter counts failed login attempts per IP and username pair inside
// a sliding window and locks the pair out once the limit is reached.
type RateLimiter struct {
	mu              sync.Mutex
	attempts        map[string]*attemptRecord
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	now             func() time.Time
	stop            chan struct{}
	stopOnce        sync.Once
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

type RateLimitConfig struct {
	MaxAttempts     int           // default 5
	WindowDuration  time.Duration // default 15m
	LockoutDuration time.Duration // default 30m
	CleanupInterval time.Duration // default 5m
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = 15 * time.Minute
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	rl := &RateLimiter{
		attempts:        make(map[string]*attemptRecord),
		maxAttempts:     cfg.MaxAttempts,
		windowDuration:  cfg.WindowDuration,
		lockoutDuration: cfg.LockoutDuration,
		now:             time.Now,
		stop:            make(chan struct{}),
	}
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func key(ip, username string) string {
	return ip + ":" + username
}

// Allow reports whether another attempt is permitted and, if not, how long
// until it will be.
func (rl *RateLimiter) Allow(ip, username string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts[key(ip, username)]
	if !ok {
		return true, 0
	}
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now).Round(time.Second)
	}
	if now.Sub(record.firstAttempt) > rl.windowDuration || record.count < rl.maxAttempts {
		return true, 0
	}
	return false, rl.lockoutDuration
}

// RecordFailure counts a failed attempt and reports whether it triggered a
// lockout.
func (rl *RateLimiter) RecordFailure(ip, username string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	k := key(ip, username)
	record, ok := rl.attempts[k]
	if !ok || now.Sub(record.firstAttempt) > rl.windowDuration {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[k] = record
	}

	record.count++
	if record.count >= rl.maxAttempts {
		record.lockedUntil = now.Add(rl.lockoutDuration)
		return true
	}
	return false
}

// RecordSuccess forgets the failures of a pair after a good login.
func (rl *RateLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	delete(rl.attempts, key(ip, username))
	rl.mu.Unlock()
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, record := range rl.attempts {
		if now.Sub(record.firstAttempt) > rl.windowDuration && !now.Before(record.lockedUntil) {
			delete(rl.attempts, k)
		}
	}
}
