package rest

import (
	"context"
	"fmt"
)

// GetMetadata fetches the exchange metadata.
func (c *Client) GetMetadata(ctx context.Context) (*Metadata, error) {
	var meta Metadata
	if err := c.get(ctx, "/api/v1/public/meta/getMetaData", nil, &meta); err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	return &meta, nil
}

// GetServerTime fetches the current exchange time.
func (c *Client) GetServerTime(ctx context.Context) (*ServerTime, error) {
	var st ServerTime
	if err := c.get(ctx, "/api/v1/public/meta/getServerTime", nil, &st); err != nil {
		return nil, fmt.Errorf("get server time: %w", err)
	}
	return &st, nil
}

// findContract returns the contract with the given ID from metadata.
func findContract(meta *Metadata, contractID string) (*Contract, error) {
	for i := range meta.ContractList {
		if meta.ContractList[i].ContractID == contractID {
			return &meta.ContractList[i], nil
		}
	}
	return nil, fmt.Errorf("contract not found: %s", contractID)
}
