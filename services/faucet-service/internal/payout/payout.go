package payout

import (
	"context"

	"github.com/shopspring/decimal"

	apperrors "github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/models"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/node"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/pricing"
)

// Wallet is the funding source. Implemented by node.Client.
type Wallet interface {
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	SendToAddress(ctx context.Context, address string, amount decimal.Decimal) (string, error)
	ListAddressGroupings(ctx context.Context) ([]node.AddressBalance, error)
}

type Receipt struct {
	TxId   string
	Amount decimal.Decimal
	Class  models.RewardClass
}

// Quote is the amount priced for one event. The same quote is checked and then sent.
type Quote struct {
	Amount decimal.Decimal
	Class  models.RewardClass
}

type Gate interface {
	CanExecute(ctx context.Context, class models.RewardClass) (Quote, bool, error)
	Execute(ctx context.Context, quote Quote, address string) (*Receipt, error)
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	DepositAddresses(ctx context.Context) ([]string, error)
}

type gate struct {
	wallet  Wallet
	pricing pricing.Engine
	logger  *logger.Logger
}

func NewGate(wallet Wallet, pricing pricing.Engine, log *logger.Logger) Gate {
	return &gate{
		wallet:  wallet,
		pricing: pricing,
		logger:  log.With("component", "payout"),
	}
}

// CanExecute prices class once and reports whether the balance strictly exceeds it.
// A quote that rounds to zero is never executable.
func (g *gate) CanExecute(ctx context.Context, class models.RewardClass) (Quote, bool, error) {
	required, err := g.pricing.GetAmount(ctx, class)
	if err != nil {
		return Quote{}, false, err
	}
	quote := Quote{Amount: required, Class: class}

	if !required.IsPositive() {
		g.logger.Warn("Reward amount rounds to zero", "class", class.String(), "amount", required.String())
		return quote, false, nil
	}

	balance, err := g.wallet.GetBalance(ctx)
	if err != nil {
		return quote, false, err
	}

	if !balance.GreaterThan(required) {
		g.logger.Warn("Faucet balance too low", "balance", balance.String(), "required", required.String())
		return quote, false, nil
	}
	return quote, true, nil
}

func (g *gate) Execute(ctx context.Context, quote Quote, address string) (*Receipt, error) {
	if !quote.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "refusing to send non-positive amount "+quote.Amount.String())
	}

	txId, err := g.wallet.SendToAddress(ctx, address, quote.Amount)
	if err != nil {
		return nil, err
	}

	return &Receipt{TxId: txId, Amount: quote.Amount, Class: quote.Class}, nil
}

func (g *gate) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	return g.wallet.GetBalance(ctx)
}

// DepositAddresses lists the wallet addresses operators can top up.
func (g *gate) DepositAddresses(ctx context.Context) ([]string, error) {
	groups, err := g.wallet.ListAddressGroupings(ctx)
	if err != nil {
		return nil, err
	}

	addresses := make([]string, 0, len(groups))
	for _, ab := range groups {
		addresses = append(addresses, ab.Address)
	}
	return addresses, nil
}
