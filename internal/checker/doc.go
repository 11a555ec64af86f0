// Package checker implements the live-target probe suite.
//
// A Suite runs its Checks in a fixed order (security headers, TLS presence,
// open directories, common ports) and concatenates their findings. Network
// access goes through the Fetcher and Dialer interfaces bundled in
// Connectivity, so tests can substitute deterministic fakes.
//
// Runner fans a suite out over many targets with a concurrency cap and a
// global rate limit, keeping results in input order.
package checker
