package flow

import (
	"github.com/cryptodial/cryptodial/internal/ussd"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// renderError reduces handler errors to phone-safe prompts. Full detail is
// logged server-side; nothing chain- or store-specific crosses the USSD
// channel.
func (o *Orchestrator) renderError() ussd.ErrorRenderer {
	return func(err error) string {
		switch dialerr.Code(err) {
		case "VALIDATION":
			return "Invalid input. Please try again."
		case "INVALID_AMOUNT":
			return "Amount must be a positive number. Please try again."
		case "INVALID_CREDENTIALS":
			return "Invalid credentials. Please try again."
		case "SESSION_EXPIRED":
			return "Your session has expired. Please dial again."
		case "DECRYPTION_FAILED":
			o.log.Error("decryption failure: %v", err)
			return "Security check failed. Please start again."
		case "WALLET_NOT_FOUND":
			return "Wallet not found. Check the wallet ID and try again."
		case "UNSUPPORTED_OPERATION", "UNSUPPORTED_CHAIN":
			o.log.Error("unsupported operation: %v", err)
			return "This operation is not available for the selected blockchain."
		case "ID_GENERATION_EXHAUSTED":
			o.log.Error("wallet id generation exhausted: %v", err)
			return "Could not reserve a wallet ID. Please try again."
		case "CHAIN_SUBMISSION":
			o.log.Error("chain failure: %v", err)
			return "The network is unavailable. Please try again later."
		case "PERSISTENCE":
			o.log.Error("persistence failure: %v", err)
			return "System error. Please try again."
		default:
			o.log.Error("unclassified flow error: %v", err)
			return "System error. Please try again."
		}
	}
}
