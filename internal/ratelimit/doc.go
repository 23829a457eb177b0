// Package ratelimit implements per-principal fixed-window admission control.
//
// Each principal gets a window of Config.Window length admitting at most
// Config.MaxRequests requests. Once the clock reaches the window's reset time
// the next request starts a fresh window with a count of one. Denied requests
// do not move the reset time.
//
// Windows are created lazily and swept by a background goroutine every
// Config.CleanupInterval. Call Close to stop it.
//
//	limiter := ratelimit.New(ratelimit.Config{MaxRequests: 100, Window: time.Minute})
//	defer limiter.Close()
//	handler = ratelimit.Middleware(limiter, logger, metrics)(handler)
package ratelimit
