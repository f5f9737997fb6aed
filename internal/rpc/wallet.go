package rpc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/matheus3301/vchat/internal/memo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Payment is an inbound shielded payment to one of our addresses.
type Payment struct {
	TxID          string
	Memo          string
	Amount        decimal.Decimal
	Confirmations int64
	BlockTime     int64 // unix seconds, 0 when unknown
}

// Output is an unspent shielded note.
type Output struct {
	TxID          string
	Value         decimal.Decimal
	Confirmations int64
}

type receivedEntry struct {
	TxID          string          `json:"txid"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int64           `json:"confirmations"`
	Memo          string          `json:"memo"`
	MemoStr       *string         `json:"memostr"`
	BlockTime     int64           `json:"blocktime"`
	Change        bool            `json:"change"`
}

type unspentEntry struct {
	TxID          string          `json:"txid"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int64           `json:"confirmations"`
}

// CurrentBlockHeight returns the daemon's block count.
func (c *Client) CurrentBlockHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// ListInboundPayments returns every payment received by address, including
// unconfirmed ones. Change notes are skipped.
func (c *Client) ListInboundPayments(ctx context.Context, address string) ([]Payment, error) {
	var entries []receivedEntry
	err := c.Call(ctx, "z_listreceivedbyaddress", []any{address, 0}, &entries)
	if IsCode(err, codeInvalidParameter) {
		// An address that never received anything is reported as -8.
		c.logger.Debug("no received payments", zap.String("address", address), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	payments := make([]Payment, 0, len(entries))
	for _, e := range entries {
		if e.Change {
			continue
		}
		payments = append(payments, Payment{
			TxID:          e.TxID,
			Memo:          e.memoText(),
			Amount:        e.Amount,
			Confirmations: e.Confirmations,
			BlockTime:     e.BlockTime,
		})
	}
	return payments, nil
}

func (e receivedEntry) memoText() string {
	if e.MemoStr != nil {
		return *e.MemoStr
	}
	if e.Memo == "" || strings.HasPrefix(e.Memo, "f6") {
		// 0xF6 marks "no memo".
		return ""
	}
	s, err := memo.DecodeHex(e.Memo)
	if err != nil {
		return ""
	}
	return s
}

// ListUnspentOutputs returns confirmed unspent notes of address.
func (c *Client) ListUnspentOutputs(ctx context.Context, address string) ([]Output, error) {
	var entries []unspentEntry
	if err := c.Call(ctx, "z_listunspent", []any{1, 9999999, false, []string{address}}, &entries); err != nil {
		return nil, err
	}
	outputs := make([]Output, len(entries))
	for i, e := range entries {
		outputs[i] = Output{TxID: e.TxID, Value: e.Amount, Confirmations: e.Confirmations}
	}
	return outputs, nil
}

type sendRecipient struct {
	Address string      `json:"address"`
	Amount  json.Number `json:"amount"`
	Memo    string      `json:"memo"`
}

// SubmitPayment sends amount with a hex memo from one shielded address to
// another and returns the id the daemon assigned to it.
func (c *Client) SubmitPayment(ctx context.Context, from, to string, amount decimal.Decimal, memoHex string) (string, error) {
	recipients := []sendRecipient{{
		Address: to,
		Amount:  json.Number(amount.String()),
		Memo:    memoHex,
	}}
	var id string
	if err := c.Call(ctx, "z_sendmany", []any{from, recipients, 1}, &id); err != nil {
		return "", err
	}
	c.logger.Info("payment submitted", zap.String("id", id), zap.String("amount", amount.String()))
	return id, nil
}

// PrivateBalance returns the balance of a shielded address.
func (c *Client) PrivateBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := c.Call(ctx, "z_getbalance", []any{address}, &balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
