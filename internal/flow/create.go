package flow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/sessionstore"
	"github.com/cryptodial/cryptodial/internal/storage"
	"github.com/cryptodial/cryptodial/internal/ussd"
	"github.com/cryptodial/cryptodial/internal/vault"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

func (o *Orchestrator) registerCreateStates(m *ussd.Menu) {
	m.State(stateSelectChain, &ussd.State{
		Run: o.runSelectChain,
		Next: []ussd.Transition{
			{Pattern: "0", To: stateStart},
			{Pattern: `*^[1-4]$`, To: stateStageWallet},
		},
	})
	m.State(stateStageWallet, &ussd.State{
		Run: o.runStageWallet,
		Next: []ussd.Transition{
			{Pattern: `*^\d{6}$`, To: stateConfirmPin},
		},
	})
	m.State(stateConfirmPin, &ussd.State{
		Run: o.runConfirmPin,
	})
}

func (o *Orchestrator) runSelectChain(_ context.Context, _ ussd.Env) (ussd.Reply, error) {
	prompt := "Select a blockchain:\n"
	for i, id := range chain.AllChains() {
		prompt += fmt.Sprintf("%d. %s\n", i+1, id.DisplayName())
	}
	prompt += "0. Back"
	return ussd.Reply{Prompt: prompt}, nil
}

// runStageWallet generates the wallet for the chosen chain and stages its
// key encrypted under the placeholder PIN. Re-entered with a malformed PIN,
// it only re-prompts: the wallet is generated exactly once per session.
func (o *Orchestrator) runStageWallet(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	if sess, err := o.session(ctx, env); err == nil && sess.TempEncryptedKey != "" {
		return ussd.Reply{Prompt: "PIN must be exactly 6 digits.\nEnter a 6-digit PIN:"}, nil
	}

	cc, err := countryCode(env.PhoneNumber)
	if err != nil {
		return ussd.Reply{}, err
	}

	choice, err := strconv.Atoi(env.Input)
	if err != nil || choice < 1 || choice > len(chain.AllChains()) {
		return ussd.Reply{}, dialerr.WithDetails(dialerr.ErrValidation, map[string]string{
			"choice": env.Input,
		})
	}
	chainID := chain.AllChains()[choice-1]

	adapter, err := o.registry.Resolve(chainID)
	if err != nil {
		return ussd.Reply{}, err
	}

	walletID, err := o.dir.GenerateWalletID(ctx, chainID, cc)
	if err != nil {
		return ussd.Reply{}, err
	}

	keypair, err := adapter.CreateWallet(nil)
	if err != nil {
		return ussd.Reply{}, err
	}

	// The plaintext key lives only in this request and the disclosure SMS;
	// it is staged encrypted even before the user picks a PIN.
	staged, err := o.vault.Encrypt(keypair.PrivateKey, placeholderPin)
	if err != nil {
		return ussd.Reply{}, err
	}

	err = o.stash(ctx, env, sessionstore.Update{
		TempEncryptedKey: sessionstore.StringPtr(staged),
		TempBlockchain:   sessionstore.StringPtr(chainID.String()),
	}, map[string]string{
		tempWalletID: walletID,
		tempAddress:  keypair.Address,
	})
	if err != nil {
		return ussd.Reply{}, err
	}

	return ussd.Reply{Prompt: fmt.Sprintf(
		"%s wallet reserved: %s\nEnter a 6-digit PIN to secure it:",
		chainID.DisplayName(), walletID)}, nil
}

// runConfirmPin re-encrypts the staged key under the caller's real PIN,
// persists the wallet record, and sends the one-time key disclosure SMS.
// The SMS is the only channel carrying the plaintext key to the user, so
// its failure is surfaced rather than swallowed.
func (o *Orchestrator) runConfirmPin(ctx context.Context, env ussd.Env) (ussd.Reply, error) {
	pin := env.Input
	if !pinPattern.MatchString(pin) || pin == placeholderPin {
		return ussd.Reply{}, dialerr.WithDetails(dialerr.ErrValidation, map[string]string{
			"pin": "must be 6 digits",
		})
	}

	sess, err := o.session(ctx, env)
	if err != nil {
		return ussd.Reply{}, err
	}
	temp := sess.Temp()
	walletID, address := temp[tempWalletID], temp[tempAddress]
	if sess.TempEncryptedKey == "" || sess.TempBlockchain == "" || walletID == "" {
		return ussd.Reply{}, dialerr.ErrSessionExpired
	}

	plainKey, err := o.vault.Decrypt(sess.TempEncryptedKey, placeholderPin)
	if err != nil {
		return ussd.Reply{}, err
	}

	sealed, err := o.vault.Encrypt(plainKey, pin)
	if err != nil {
		return ussd.Reply{}, err
	}

	if err := o.dir.Save(ctx, &storage.WalletRecord{
		WalletID:     walletID,
		PhoneNumber:  env.PhoneNumber,
		Blockchain:   sess.TempBlockchain,
		Address:      address,
		EncryptedKey: sealed,
		PinHash:      vault.HashPin(pin),
	}); err != nil {
		return ussd.Reply{}, err
	}

	if err := o.sessions.ClearSensitive(ctx, env.SessionID); err != nil {
		o.log.Error("clearing sensitive session fields: %v", err)
	}

	disclosure := fmt.Sprintf(
		"Your Cryptodial wallet is ready.\nWallet ID: %s\nPrivate key: %s\n"+
			"Keep this key safe; it will not be sent again.", walletID, plainKey)
	if err := o.notifier.Send(ctx, env.PhoneNumber, disclosure); err != nil {
		o.log.Error("wallet disclosure sms for %s failed: %v", walletID, err)
		return ussd.Reply{Prompt: fmt.Sprintf(
			"Wallet %s was created but the key SMS could not be delivered. "+
				"Contact support before funding this wallet.", walletID), End: true}, nil
	}

	return ussd.Reply{Prompt: fmt.Sprintf(
		"Wallet %s created. Your private key was sent to you by SMS.", walletID), End: true}, nil
}
