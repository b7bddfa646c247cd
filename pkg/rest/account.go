package rest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetAccountAsset fetches the account's asset and collateral view.
func (c *Client) GetAccountAsset(ctx context.Context) (*AccountAsset, error) {
	query := url.Values{}
	query.Set("accountId", strconv.FormatInt(c.accountID, 10))

	var asset AccountAsset
	if err := c.get(ctx, "/api/v1/private/account/getAccountAsset", query, &asset); err != nil {
		return nil, fmt.Errorf("get account asset: %w", err)
	}
	return &asset, nil
}

// GetAccountPositions fetches the account's open positions.
func (c *Client) GetAccountPositions(ctx context.Context) ([]Position, error) {
	query := url.Values{}
	query.Set("accountId", strconv.FormatInt(c.accountID, 10))

	var positions []Position
	if err := c.get(ctx, "/api/v1/private/account/getAccountPositions", query, &positions); err != nil {
		return nil, fmt.Errorf("get account positions: %w", err)
	}
	return positions, nil
}
