package generative

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrUnavailable means no tier produced a usable result; the signal is absent.
	ErrUnavailable = errors.New("generative signal unavailable")
	// ErrSchema marks a response that violates the output contract.
	ErrSchema = errors.New("generative response violates schema")
	// ErrQuota marks a tier skipped because its rate limiter had no tokens.
	ErrQuota = errors.New("generative tier quota exhausted")
	// ErrNoTiers is returned by NewChain without tiers.
	ErrNoTiers = errors.New("no generative tiers configured")
)
