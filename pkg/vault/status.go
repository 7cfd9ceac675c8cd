package vault

import (
	"context"
	"time"
)

// Status is a display snapshot of the vault. It never carries secrets.
type Status struct {
	Account           string        `json:"account"`
	State             State         `json:"-"`
	StateName         string        `json:"state"`
	VaultID           string        `json:"vault_id,omitempty"`
	PublicKey         string        `json:"public_key,omitempty"`
	CreatedAt         time.Time     `json:"created_at,omitzero"`
	UnlockedUntil     time.Time     `json:"unlocked_until,omitzero"`
	CooldownRemaining time.Duration `json:"cooldown_remaining,omitempty"`
}

// Status returns the current snapshot. Storage errors are returned.
func (v *Vault) Status(ctx context.Context) (*Status, error) {
	st := &Status{Account: v.account}

	state, err := v.State(ctx)
	if err != nil {
		return nil, err
	}
	st.State = state
	st.StateName = state.String()
	if state == StateNoVault {
		return st, nil
	}

	bundle, err := v.getBundle(ctx)
	if err != nil {
		return nil, err
	}
	if bundle != nil {
		st.VaultID = bundle.ID
		st.PublicKey = bundle.PublicKey
		st.CreatedAt = bundle.CreatedAt
	}
	if state == StateUnlocked {
		st.UnlockedUntil, _ = v.UnlockedUntil(ctx)
	}
	st.CooldownRemaining = v.RemainingCooldown(ctx)
	return st, nil
}
