package db

import (
	"context"
	"errors"
	"testing"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey{}, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil for wrong type")
	}
}

func TestWithTx_NoBeginner(t *testing.T) {
	_, _, err := WithTx(context.Background(), nil)
	if !errors.Is(err, ErrNoBeginner) {
		t.Errorf("expected ErrNoBeginner, got %v", err)
	}
}

func TestRunInTx_NoBeginner(t *testing.T) {
	called := false
	err := RunInTx(context.Background(), nil, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrNoBeginner) {
		t.Errorf("expected ErrNoBeginner, got %v", err)
	}
	if called {
		t.Error("fn must not run without a transaction")
	}
}
