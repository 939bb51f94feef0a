package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestSentinelMatching(t *testing.T) {
	if !Is(ErrValidation, ErrValidation) {
		t.Error("sentinel must match itself")
	}
	if Is(ErrValidation, ErrDecryption) {
		t.Error("distinct sentinels must not match")
	}
}

func TestWrap_KeepsInnermostCode(t *testing.T) {
	err := Wrap(ErrWalletNotFound, "looking up sender")

	if !Is(err, ErrWalletNotFound) {
		t.Error("wrapped error must still match its sentinel")
	}
	if Code(err) != "WALLET_NOT_FOUND" {
		t.Errorf("Code() = %q, want WALLET_NOT_FOUND", Code(err))
	}
	if !strings.Contains(err.Error(), "looking up sender") {
		t.Errorf("message lost: %q", err.Error())
	}
}

func TestWrap_PlainError(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := Wrap(cause, "connecting")

	if Code(err) != "GENERAL_ERROR" {
		t.Errorf("Code() = %q, want GENERAL_ERROR", Code(err))
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause must remain unwrappable")
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "anything") != nil {
		t.Error("Wrap(nil) must be nil")
	}
	if WrapWith(nil, ErrPersistence, "anything") != nil {
		t.Error("WrapWith(nil) must be nil")
	}
	if WithDetails(nil, nil) != nil {
		t.Error("WithDetails(nil) must be nil")
	}
}

func TestWrapWith_AttachesSentinelCode(t *testing.T) {
	cause := stderrors.New("bad nonce")
	err := WrapWith(cause, ErrChainSubmission, "submitting transaction")

	if !Is(err, ErrChainSubmission) {
		t.Error("must match the sentinel")
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause must remain unwrappable")
	}
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrNotFound, map[string]string{"transaction": "0xb"})

	if !Is(err, ErrNotFound) {
		t.Error("details must not change the code")
	}
	if !strings.Contains(err.Error(), "transaction: 0xb") {
		t.Errorf("details missing from message: %q", err.Error())
	}
}

func TestError_DetailsSortedDeterministically(t *testing.T) {
	err := WithDetails(ErrValidation, map[string]string{"b": "2", "a": "1", "c": "3"})

	first := err.Error()
	for i := 0; i < 10; i++ {
		if err.Error() != first {
			t.Fatal("Error() output must be deterministic")
		}
	}
	if strings.Index(first, "a: 1") > strings.Index(first, "b: 2") {
		t.Errorf("details not sorted: %q", first)
	}
}

func TestCode_PlainError(t *testing.T) {
	if Code(stderrors.New("boom")) != "GENERAL_ERROR" {
		t.Error("plain errors map to GENERAL_ERROR")
	}
}
