// Package backoff computes the delay between transport retry attempts.
package backoff

import (
	"math/rand"
	"strings"
	"time"
)

// Params carries the tunables shared by every strategy.
type Params struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Strategy returns the delay before retry number attempt (zero based).
type Strategy interface {
	Delay(attempt int, p Params) time.Duration
}

// Exponential grows the delay by Multiplier per attempt and adds up to
// Jitter*delay of uniform noise, capped at Max.
type Exponential struct{}

// Delay implements Strategy.
func (Exponential) Delay(attempt int, p Params) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(p.Initial) * pow(p.Multiplier, attempt))
	if delay < 0 || delay > p.Max {
		delay = p.Max
	}

	jitter := clamp(p.Jitter)
	if jitter > 0 {
		delay += time.Duration(float64(delay) * jitter * rand.Float64())
		if delay > p.Max {
			delay = p.Max
		}
	}
	return delay
}

// Decorrelated picks a random delay between Initial and min(Max, Initial*3^attempt).
type Decorrelated struct{}

// Delay implements Strategy.
func (Decorrelated) Delay(attempt int, p Params) time.Duration {
	if attempt <= 0 {
		return p.Initial
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(p.Initial)
	upper := base * pow(3.0, attempt)
	if upper > float64(p.Max) || upper < 0 {
		upper = float64(p.Max)
	}
	if upper < base {
		upper = base
	}

	delay := time.Duration(base + rand.Float64()*(upper-base))
	if delay < 0 || delay > p.Max {
		delay = p.Max
	}
	return delay
}

// ForName resolves "exponential" or "decorrelated"; anything else falls back
// to Exponential.
func ForName(name string) Strategy {
	if strings.EqualFold(name, "decorrelated") {
		return Decorrelated{}
	}
	return Exponential{}
}

func clamp(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
