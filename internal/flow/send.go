package flow

import (
	"context"
	"fmt"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/directory"
	"github.com/cryptodial/cryptodial/internal/explorer"
	"github.com/cryptodial/cryptodial/internal/ledger"
	"github.com/cryptodial/cryptodial/internal/sessionstore"
	"github.com/cryptodial/cryptodial/internal/ussd"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

func (o *Orchestrator) registerSendStates(m *ussd.Menu) {
	m.State(stateSendTo, &ussd.State{
		Run: o.runSendRecipient,
		Next: []ussd.Transition{
			{Pattern: "0", To: stateAuthMenu},
			{Pattern: `*^.+$`, To: stateSendAmount},
		},
	})
	m.State(stateSendAmount, &ussd.State{
		Run: o.runSendAmount,
		Next: []ussd.Transition{
			{Pattern: `*^.+$`, To: stateSendConfirm},
		},
	})
	m.State(stateSendConfirm, &ussd.State{
		Run: o.runSendConfirm,
		Next: []ussd.Transition{
			{Pattern: "1", To: stateSendExecute},
			{Pattern: "2", To: stateStart},
		},
	})
	m.State(stateSendExecute, &ussd.State{
		Run: o.runSendExecute,
	})
}

func (o *Orchestrator) runSendRecipient(_ context.Context, _ ussd.Env) (ussd.Reply, error) {
	return ussd.Reply{Prompt: "Enter the recipient's wallet ID:\n0. Back"}, nil
}

// runSendAmount validates and stages the recipient, then asks for the amount.
func (o *Orchestrator) runSendAmount(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	if !directory.ValidWalletID(env.Input) {
		return ussd.Reply{}, dialerr.WithDetails(dialerr.ErrValidation, map[string]string{
			"recipient": "malformed",
		})
	}

	sess, err := o.session(ctx, env)
	if err != nil {
		return ussd.Reply{}, err
	}
	if sess.WalletID == env.Input {
		return ussd.Reply{}, dialerr.WithDetails(dialerr.ErrValidation, map[string]string{
			"recipient": "self",
		})
	}

	if err := o.stash(ctx, env, sessionstore.Update{}, map[string]string{
		tempRecipient: env.Input,
	}); err != nil {
		return ussd.Reply{}, err
	}
	return ussd.Reply{Prompt: "Enter the amount to send:"}, nil
}

// runSendConfirm validates and stages the amount, then echoes the transfer
// for confirmation.
func (o *Orchestrator) runSendConfirm(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	sess, err := o.session(ctx, env)
	if err != nil {
		return ussd.Reply{}, err
	}
	recipient := sess.Temp()[tempRecipient]
	if sess.WalletID == "" || recipient == "" {
		return ussd.Reply{}, dialerr.ErrSessionExpired
	}

	sender, err := o.dir.FindByWalletID(ctx, sess.WalletID)
	if err != nil {
		return ussd.Reply{}, err
	}
	adapter, err := o.registry.Resolve(chain.ID(sender.Blockchain))
	if err != nil {
		return ussd.Reply{}, err
	}

	// Same parser the executor uses, so an amount accepted here cannot be
	// rejected as invalid after the user confirms.
	if _, err := chain.ParseDecimalAmount(env.Input, adapter.Decimals()); err != nil {
		return ussd.Reply{}, dialerr.WithDetails(err, map[string]string{
			"amount": env.Input,
		})
	}

	if err := o.stash(ctx, env, sessionstore.Update{}, map[string]string{
		tempAmount: env.Input,
	}); err != nil {
		return ussd.Reply{}, err
	}

	return ussd.Reply{Prompt: fmt.Sprintf(
		"Send %s %s to %s?\n1. Confirm\n2. Cancel",
		env.Input, chain.ID(sender.Blockchain).DisplayName(), recipient)}, nil
}

// runSendExecute performs the transfer. The session is reloaded and
// revalidated, both wallets are looked up, and the key is decrypted with the
// staged PIN (cleared on failure) before the adapter submits. Every attempt
// ends as a ledger record, completed or failed.
func (o *Orchestrator) runSendExecute(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	sess, err := o.session(ctx, env)
	if err != nil {
		return ussd.Reply{}, err
	}
	temp := sess.Temp()
	recipientID, amountStr := temp[tempRecipient], temp[tempAmount]
	if sess.WalletID == "" || sess.TempPin == "" || recipientID == "" || amountStr == "" {
		return ussd.Reply{}, dialerr.ErrSessionExpired
	}

	sender, err := o.dir.FindByWalletID(ctx, sess.WalletID)
	if err != nil {
		return ussd.Reply{}, dialerr.Wrap(err, "sender wallet %s", sess.WalletID)
	}
	recipient, err := o.dir.FindByWalletID(ctx, recipientID)
	if err != nil {
		return ussd.Reply{}, dialerr.Wrap(err, "recipient wallet %s", recipientID)
	}

	plainKey, err := o.vault.Decrypt(sender.EncryptedKey, sess.TempPin)
	if err != nil {
		// Wrong PIN burns the staged attempt; the caller must start over.
		if cerr := o.sessions.ClearSensitive(ctx, env.SessionID); cerr != nil {
			o.log.Error("clearing sensitive session fields: %v", cerr)
		}
		return ussd.Reply{}, err
	}

	adapter, err := o.registry.Resolve(chain.ID(sender.Blockchain))
	if err != nil {
		return ussd.Reply{}, err
	}

	attempt := ledger.Attempt{
		SenderWalletID:    sender.WalletID,
		RecipientWalletID: recipient.WalletID,
		Chain:             adapter.ID(),
		Amount:            amountStr,
	}

	amount, err := chain.ParseDecimalAmount(amountStr, adapter.Decimals())
	if err != nil {
		return ussd.Reply{}, err
	}

	receipt, err := adapter.SendValue(ctx, chain.Credentials{
		Address:    sender.Address,
		PrivateKey: plainKey,
	}, recipient.Address, amount)
	if err != nil {
		o.log.Error("transfer %s -> %s failed: %v", sender.WalletID, recipient.WalletID, err)
		if lerr := o.ledger.RecordFailed(ctx, attempt, err); lerr != nil {
			o.log.Error("recording failed transfer: %v", lerr)
		}
		return ussd.Reply{Prompt: "Transaction failed. Please try again later.", End: true}, nil
	}

	if err := o.ledger.RecordCompleted(ctx, attempt, receipt); err != nil {
		o.log.Error("recording completed transfer %s: %v", receipt.TxHash, err)
	}

	link := explorer.TxURL(adapter.ID(), receipt.TxHash)
	confirmation := fmt.Sprintf("Sent %s %s to %s.\n%s",
		amountStr, adapter.ID().DisplayName(), recipient.WalletID, link)
	if err := o.notifier.Send(ctx, env.PhoneNumber, confirmation); err != nil {
		// Best-effort: the transfer is already recorded.
		o.log.Error("transfer confirmation sms failed: %v", err)
	}

	if err := o.sessions.ClearSensitive(ctx, env.SessionID); err != nil {
		o.log.Error("clearing sensitive session fields: %v", err)
	}

	return ussd.Reply{Prompt: fmt.Sprintf("Transaction submitted.\n%s", link), End: true}, nil
}
