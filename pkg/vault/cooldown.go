package vault

import (
	"context"
	"fmt"
	"time"
)

// CooldownStep blocks unlocking for Duration once FailedAttempts reaches
// Failures.
type CooldownStep struct {
	Failures int
	Duration time.Duration
}

// CooldownPolicy is an escalating list of steps, ordered by Failures.
type CooldownPolicy struct {
	Steps []CooldownStep
}

// DefaultCooldownPolicy returns 5 failures -> 30s, 10 -> 5m, 20 -> 30m.
func DefaultCooldownPolicy() CooldownPolicy {
	return CooldownPolicy{
		Steps: []CooldownStep{
			{Failures: 5, Duration: 30 * time.Second},
			{Failures: 10, Duration: 5 * time.Minute},
			{Failures: 20, Duration: 30 * time.Minute},
		},
	}
}

// durationFor returns the cooldown for the given cumulative failure count,
// or 0 when no step applies.
func (p CooldownPolicy) durationFor(failures int) time.Duration {
	var d time.Duration
	for _, step := range p.Steps {
		if failures >= step.Failures && step.Duration > d {
			d = step.Duration
		}
	}
	return d
}

// checkCooldown verifies if unlock is allowed or if cooldown is active
func (v *Vault) checkCooldown(ctx context.Context) error {
	if v.cooldown == nil {
		return nil
	}
	state, err := v.getAttempts(ctx)
	if err != nil {
		return err
	}

	now := v.now()
	if !state.CooldownUntil.IsZero() && now.Before(state.CooldownUntil) {
		remaining := state.CooldownUntil.Sub(now)
		return fmt.Errorf("%w: please wait %v", ErrCooldownActive, remaining.Round(time.Second))
	}
	return nil
}

// recordFailure counts a rejected unlock and returns cause, additionally
// wrapping ErrTooManyAttempts when the failure started a cooldown. Storage
// errors are logged and never replace cause.
func (v *Vault) recordFailure(ctx context.Context, cause error) error {
	if v.cooldown == nil {
		return cause
	}

	state, err := v.getAttempts(ctx)
	if err != nil {
		v.log.Warn().Err(err).Msg("failed to record unlock attempt")
		return cause
	}

	now := v.now()
	state.FailedAttempts++
	state.LastAttempt = now.UTC()

	d := v.cooldown.durationFor(state.FailedAttempts)
	if d > 0 {
		state.CooldownUntil = now.Add(d).UTC()
	}

	if err := v.saveAttempts(ctx, state); err != nil {
		v.log.Warn().Err(err).Msg("failed to record unlock attempt")
	}

	if d > 0 {
		v.log.Warn().
			Int("failed_attempts", state.FailedAttempts).
			Dur("cooldown", d).
			Msg("unlock cooldown activated")
		return fmt.Errorf("%w (%w: cooldown activated for %v)", cause, ErrTooManyAttempts, d)
	}
	return cause
}

// clearAttempts resets the failure history after a successful unlock.
func (v *Vault) clearAttempts(ctx context.Context) {
	if v.cooldown == nil {
		return
	}
	if err := v.removeAttempts(ctx); err != nil {
		v.log.Warn().Err(err).Msg("failed to clear unlock attempts")
	}
}

// Attempts returns the stored failure history for display purposes.
func (v *Vault) Attempts(ctx context.Context) (*AttemptState, error) {
	return v.getAttempts(ctx)
}

// RemainingCooldown returns the remaining cooldown time, or 0 if not in cooldown
func (v *Vault) RemainingCooldown(ctx context.Context) time.Duration {
	if v.cooldown == nil {
		return 0
	}
	state, err := v.getAttempts(ctx)
	if err != nil {
		return 0
	}

	now := v.now()
	if !state.CooldownUntil.IsZero() && now.Before(state.CooldownUntil) {
		return state.CooldownUntil.Sub(now)
	}
	return 0
}
