// Package flow wires the wallet operations into phone-menu state machines:
// create-wallet, access-wallet and send-crypto, plus the informational menu
// entries around them.
package flow

import (
	"context"
	"regexp"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/config"
	"github.com/cryptodial/cryptodial/internal/directory"
	"github.com/cryptodial/cryptodial/internal/ledger"
	"github.com/cryptodial/cryptodial/internal/notify"
	"github.com/cryptodial/cryptodial/internal/sessionstore"
	"github.com/cryptodial/cryptodial/internal/ussd"
	"github.com/cryptodial/cryptodial/internal/vault"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// State names. Persisted in sessions, so renaming one invalidates live calls.
const (
	stateStart        = "start"
	stateSelectChain  = "create.selectChain"
	stateStageWallet  = "create.stageWallet"
	stateConfirmPin   = "create.confirmPin"
	stateAccessWallet = "access.walletId"
	stateAccessPin    = "access.pin"
	stateAuthMenu     = "access.menu"
	stateViewBalance  = "access.balance"
	stateViewHistory  = "access.transactions"
	stateSendTo       = "send.recipient"
	stateSendAmount   = "send.amount"
	stateSendConfirm  = "send.confirm"
	stateSendExecute  = "send.execute"
	stateComingSoon   = "comingSoon"
	stateHelp         = "help"
)

// placeholderPin encrypts the staged key between generation and the user's
// real PIN. Never accepted as a user PIN.
const placeholderPin = "000000"

// Temp scratch keys.
const (
	tempWalletID       = "walletId"
	tempAddress        = "address"
	tempAccessWalletID = "accessWalletId"
	tempRecipient      = "recipient"
	tempAmount         = "amount"
)

// historyLimit caps the transactions menu listing.
const historyLimit = 5

var (
	pinPattern   = regexp.MustCompile(`^\d{6}$`)
	phonePattern = regexp.MustCompile(`^\+\d{10,14}$`)
)

// Orchestrator owns the flow state machines and their collaborators.
type Orchestrator struct {
	sessions *sessionstore.Store
	dir      *directory.Directory
	ledger   *ledger.Recorder
	vault    *vault.Vault
	registry *chain.Registry
	notifier notify.Sender
	log      *config.Logger
}

// New creates an orchestrator.
func New(
	sessions *sessionstore.Store,
	dir *directory.Directory,
	rec *ledger.Recorder,
	v *vault.Vault,
	registry *chain.Registry,
	notifier notify.Sender,
	log *config.Logger,
) *Orchestrator {
	if log == nil {
		log = config.NullLogger()
	}
	return &Orchestrator{
		sessions: sessions,
		dir:      dir,
		ledger:   rec,
		vault:    v,
		registry: registry,
		notifier: notifier,
		log:      log,
	}
}

// BuildMenu assembles the full menu over the orchestrator's flows.
func (o *Orchestrator) BuildMenu() *ussd.Menu {
	m := ussd.NewMenu(stateStart, o.stateStore(), o.renderError())

	m.State(stateStart, &ussd.State{
		Run: o.runStart,
		Next: []ussd.Transition{
			{Pattern: "1", To: stateSelectChain},
			{Pattern: "2", To: stateAccessWallet},
			{Pattern: "3", To: stateAccessWallet},
			{Pattern: "4", To: stateComingSoon},
			{Pattern: "5", To: stateComingSoon},
			{Pattern: "6", To: stateComingSoon},
			{Pattern: "7", To: stateComingSoon},
			{Pattern: "8", To: stateHelp},
		},
	})

	o.registerCreateStates(m)
	o.registerAccessStates(m)
	o.registerSendStates(m)

	m.State(stateComingSoon, &ussd.State{Run: o.runComingSoon})
	m.State(stateHelp, &ussd.State{Run: o.runHelp})

	return m
}

func (o *Orchestrator) runStart(_ context.Context, env ussd.Env) (ussd.Reply, error) {
	if !phonePattern.MatchString(env.PhoneNumber) {
		return ussd.Reply{
			Prompt: "Cryptodial is not available for this number.",
			End:    true,
		}, nil
	}
	return ussd.Reply{Prompt: "Welcome to Cryptodial\n" +
		"1. Create Wallet\n" +
		"2. Access Wallet\n" +
		"3. Send Crypto\n" +
		"4. Buy Crypto\n" +
		"5. Sell Crypto\n" +
		"6. Market Prices\n" +
		"7. Request Funds\n" +
		"8. Help"}, nil
}

func (o *Orchestrator) runComingSoon(_ context.Context, _ ussd.Env) (ussd.Reply, error) {
	return ussd.Reply{Prompt: "This service is coming soon. Dial again later.", End: true}, nil
}

func (o *Orchestrator) runHelp(_ context.Context, _ ussd.Env) (ussd.Reply, error) {
	return ussd.Reply{Prompt: "Cryptodial support: call 0800-000-000 or " +
		"email support@cryptodial.example. Never share your PIN.", End: true}, nil
}

// session loads the caller's session, mapping absence to expiry.
func (o *Orchestrator) session(ctx context.Context, env ussd.Env) (*sessionstore.Session, error) {
	return o.sessions.Get(ctx, env.SessionID)
}

// stash merges scratch values into the session's temp payload.
func (o *Orchestrator) stash(ctx context.Context, env ussd.Env, upd sessionstore.Update, temp map[string]string) error {
	if temp != nil {
		sess, err := o.session(ctx, env)
		merged := make(map[string]string)
		if err == nil {
			merged = sess.Temp()
		}
		for k, v := range temp {
			merged[k] = v
		}
		upd.TempData = sessionstore.EncodeTemp(merged)
	}
	_, err := o.sessions.Upsert(ctx, env.SessionID, env.PhoneNumber, upd)
	return err
}

// countryCode extracts the 3-digit country code from an international phone
// number, validating the number along the way.
func countryCode(phoneNumber string) (string, error) {
	if !phonePattern.MatchString(phoneNumber) {
		return "", dialerr.WithDetails(dialerr.ErrValidation, map[string]string{
			"phoneNumber": "malformed",
		})
	}
	return phoneNumber[1:4], nil
}

// stateStore adapts the session store to the menu engine contract.
type stateStore struct {
	o *Orchestrator
}

func (o *Orchestrator) stateStore() ussd.StateStore { return &stateStore{o: o} }

func (s *stateStore) CurrentState(ctx context.Context, sessionID, _ string) (string, error) {
	sess, err := s.o.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess.State == "" {
		return "", dialerr.ErrSessionExpired
	}
	return sess.State, nil
}

func (s *stateStore) SetState(ctx context.Context, sessionID, phoneNumber, state string) error {
	_, err := s.o.sessions.Upsert(ctx, sessionID, phoneNumber, sessionstore.Update{
		State: sessionstore.StringPtr(state),
	})
	return err
}

func (s *stateStore) Reset(ctx context.Context, sessionID string) error {
	return s.o.sessions.Clear(ctx, sessionID)
}
