package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Identity is a VerusID able to receive shielded payments.
type Identity struct {
	FormattedName  string // "name@" or "name.parent@" for sub-IDs
	IAddress       string
	PrivateAddress string
}

type identityResult struct {
	Identity *identityDetails `json:"identity"`
}

type identityDetails struct {
	Name            string `json:"name"`
	IdentityAddress string `json:"identityaddress"`
	Parent          string `json:"parent"`
	SystemID        string `json:"systemid"`
	PrivateAddress  string `json:"privateaddress"`
}

func (d *identityDetails) complete() bool {
	return d.Name != "" && d.IdentityAddress != "" && d.Parent != "" && d.SystemID != ""
}

// Resolve looks up an identity and checks it can receive private messages.
// Lookups that find nothing usable return ErrNotFoundOrIneligible so callers
// can tell them apart from transport failures.
func (c *Client) Resolve(ctx context.Context, name string) (Identity, error) {
	if !strings.HasSuffix(name, "@") || len(name) <= 1 {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidFormat, name)
	}

	var res identityResult
	if err := c.Call(ctx, "getidentity", []any{name}, &res); err != nil {
		if isNotFound(err) {
			c.logger.Info("identity not found", zap.String("name", name), zap.Error(err))
			return Identity{}, fmt.Errorf("%w: %s", ErrNotFoundOrIneligible, name)
		}
		return Identity{}, err
	}

	d := res.Identity
	if d == nil || d.PrivateAddress == "" || !d.complete() {
		c.logger.Info("identity cannot receive private messages", zap.String("name", name))
		return Identity{}, fmt.Errorf("%w: %s", ErrNotFoundOrIneligible, name)
	}
	return Identity{
		FormattedName:  c.formatName(ctx, d),
		IAddress:       d.IdentityAddress,
		PrivateAddress: d.PrivateAddress,
	}, nil
}

// ListIdentities returns the wallet's own identities that have a private
// address, for login selection.
func (c *Client) ListIdentities(ctx context.Context) ([]Identity, error) {
	var raw []identityResult
	if err := c.Call(ctx, "listidentities", []any{true, true, true}, &raw); err != nil {
		return nil, err
	}

	var ids []Identity
	for _, r := range raw {
		d := r.Identity
		if d == nil || d.PrivateAddress == "" {
			continue
		}
		if !d.complete() {
			c.logger.Warn("identity with private address is missing fields", zap.String("name", d.Name))
			continue
		}
		ids = append(ids, Identity{
			FormattedName:  c.formatName(ctx, d),
			IAddress:       d.IdentityAddress,
			PrivateAddress: d.PrivateAddress,
		})
	}
	if len(ids) == 0 {
		return nil, ErrNoIdentities
	}
	return ids, nil
}

// formatName renders sub-IDs as "name.parent@". The plain "name@" form is
// used when the parent cannot be fetched.
func (c *Client) formatName(ctx context.Context, d *identityDetails) string {
	name := d.Name + "@"
	if d.Parent == d.SystemID {
		return name
	}
	var parent identityResult
	if err := c.Call(ctx, "getidentity", []any{d.Parent}, &parent); err != nil {
		c.logger.Warn("failed to fetch parent identity", zap.String("name", d.Name), zap.Error(err))
		return name
	}
	if parent.Identity == nil || parent.Identity.Name == "" {
		return name
	}
	return d.Name + "." + parent.Identity.Name + "@"
}

func isNotFound(err error) bool {
	if IsCode(err, codeInvalidAddressOrKey) || IsCode(err, codeInvalidParameter) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusInternalServerError
}
