package flow

import (
	"context"
	"fmt"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/directory"
	"github.com/cryptodial/cryptodial/internal/explorer"
	"github.com/cryptodial/cryptodial/internal/sessionstore"
	"github.com/cryptodial/cryptodial/internal/ussd"
	"github.com/cryptodial/cryptodial/internal/vault"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

func (o *Orchestrator) registerAccessStates(m *ussd.Menu) {
	m.State(stateAccessWallet, &ussd.State{
		Run: o.runAccessWallet,
		Next: []ussd.Transition{
			{Pattern: "0", To: stateStart},
			{Pattern: `*^.+$`, To: stateAccessPin},
		},
	})
	m.State(stateAccessPin, &ussd.State{
		Run: o.runAccessPin,
		Next: []ussd.Transition{
			{Pattern: `*^\d{6}$`, To: stateAuthMenu},
		},
	})
	m.State(stateAuthMenu, &ussd.State{
		Run: o.runAuthMenu,
		Next: []ussd.Transition{
			{Pattern: "1", To: stateViewBalance},
			{Pattern: "2", To: stateViewHistory},
			{Pattern: "3", To: stateSendTo},
			{Pattern: "0", To: stateStart},
		},
	})
	m.State(stateViewBalance, &ussd.State{
		Run: o.runViewBalance,
		Next: []ussd.Transition{
			{Pattern: "0", To: stateAuthMenu},
		},
	})
	m.State(stateViewHistory, &ussd.State{
		Run: o.runViewHistory,
		Next: []ussd.Transition{
			{Pattern: "0", To: stateAuthMenu},
		},
	})
}

func (o *Orchestrator) runAccessWallet(_ context.Context, _ ussd.Env) (ussd.Reply, error) {
	return ussd.Reply{Prompt: "Enter your wallet ID (e.g. ETN254#1234567890):\n0. Back"}, nil
}

// runAccessPin stages the claimed wallet id and prompts for the PIN.
// Re-entered with a malformed PIN it only re-prompts.
func (o *Orchestrator) runAccessPin(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	if directory.ValidWalletID(env.Input) {
		err := o.stash(ctx, env, sessionstore.Update{}, map[string]string{
			tempAccessWalletID: env.Input,
		})
		if err != nil {
			return ussd.Reply{}, err
		}
		return ussd.Reply{Prompt: "Enter your 6-digit PIN:"}, nil
	}

	if sess, err := o.session(ctx, env); err == nil && sess.Temp()[tempAccessWalletID] != "" {
		return ussd.Reply{Prompt: "PIN must be exactly 6 digits.\nEnter your 6-digit PIN:"}, nil
	}

	return ussd.Reply{}, dialerr.WithDetails(dialerr.ErrValidation, map[string]string{
		"walletId": "malformed",
	})
}

// runAuthMenu verifies the staged credentials on first entry and renders
// the authenticated menu. The PIN stays staged in the session for a
// subsequent send; it is cleared with the rest of the sensitive fields.
func (o *Orchestrator) runAuthMenu(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	sess, err := o.session(ctx, env)
	if err != nil {
		return ussd.Reply{}, err
	}

	if sess.WalletID == "" {
		claimed := sess.Temp()[tempAccessWalletID]
		if claimed == "" || !pinPattern.MatchString(env.Input) {
			return ussd.Reply{}, dialerr.ErrSessionExpired
		}

		rec, err := o.dir.FindByWalletID(ctx, claimed)
		if err != nil || !vault.ComparePin(env.Input, rec.PinHash) {
			// Same response whether the wallet id or the PIN was wrong.
			return ussd.Reply{}, dialerr.ErrInvalidCredentials
		}

		_, err = o.sessions.Upsert(ctx, env.SessionID, env.PhoneNumber, sessionstore.Update{
			WalletID: sessionstore.StringPtr(rec.WalletID),
			TempPin:  sessionstore.StringPtr(env.Input),
		})
		if err != nil {
			return ussd.Reply{}, err
		}
		sess.WalletID = rec.WalletID
	}

	return ussd.Reply{Prompt: fmt.Sprintf(
		"Wallet %s\n1. View Balance\n2. Transactions\n3. Send Crypto\n0. Main Menu",
		sess.WalletID)}, nil
}

// runViewBalance queries the chain directly. Balances are never tracked
// locally, so this is always a fresh adapter call.
func (o *Orchestrator) runViewBalance(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	sess, err := o.session(ctx, env)
	if err != nil || sess.WalletID == "" {
		return ussd.Reply{}, dialerr.ErrSessionExpired
	}

	rec, err := o.dir.FindByWalletID(ctx, sess.WalletID)
	if err != nil {
		return ussd.Reply{}, err
	}

	adapter, err := o.registry.Resolve(chain.ID(rec.Blockchain))
	if err != nil {
		return ussd.Reply{}, err
	}

	balance, err := adapter.GetBalance(ctx, rec.Address)
	if err != nil {
		return ussd.Reply{}, err
	}

	return ussd.Reply{Prompt: fmt.Sprintf("Balance: %s %s\n0. Back",
		chain.FormatDecimalAmount(balance, adapter.Decimals()),
		adapter.ID().DisplayName())}, nil
}

func (o *Orchestrator) runViewHistory(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	sess, err := o.session(ctx, env)
	if err != nil || sess.WalletID == "" {
		return ussd.Reply{}, dialerr.ErrSessionExpired
	}

	records, err := o.ledger.RecentBySender(ctx, sess.WalletID, historyLimit)
	if err != nil {
		return ussd.Reply{}, err
	}
	if len(records) == 0 {
		return ussd.Reply{Prompt: "No transactions yet.\n0. Back"}, nil
	}

	prompt := "Recent transactions:\n"
	for i, r := range records {
		prompt += fmt.Sprintf("%d. %s %s to %s (%s)\n",
			i+1, r.Amount, chain.ID(r.Blockchain).DisplayName(),
			r.RecipientWalletID, r.Status)
		if r.TxHash != "" {
			prompt += explorer.TxURL(chain.ID(r.Blockchain), r.TxHash) + "\n"
		}
	}
	prompt += "0. Back"
	return ussd.Reply{Prompt: prompt}, nil
}
