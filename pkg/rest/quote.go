package rest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// GetQuoteSummary fetches the quote summary for a contract.
func (c *Client) GetQuoteSummary(ctx context.Context, contractID string) (*Ticker, error) {
	query := url.Values{}
	query.Set("contractId", contractID)

	var t Ticker
	if err := c.get(ctx, "/api/v1/public/quote/getTicketSummary", query, &t); err != nil {
		return nil, fmt.Errorf("get quote summary: %w", err)
	}
	return &t, nil
}

// Get24HourQuote fetches the 24-hour ticker for a contract. The API
// returns a list; a missing contract yields an empty list.
func (c *Client) Get24HourQuote(ctx context.Context, contractID string) ([]Ticker, error) {
	query := url.Values{}
	query.Set("contractId", contractID)

	var tickers []Ticker
	if err := c.get(ctx, "/api/v1/public/quote/getTicker", query, &tickers); err != nil {
		return nil, fmt.Errorf("get 24 hour quote: %w", err)
	}
	return tickers, nil
}

// GetKLine fetches candle data for a contract.
func (c *Client) GetKLine(ctx context.Context, params GetKLineParams) (*KLinePage, error) {
	query := url.Values{}
	query.Set("contractId", params.ContractID)
	query.Set("klineType", params.Interval)

	if params.Size != "" {
		query.Set("size", params.Size)
	}
	if params.OffsetData != "" {
		query.Set("offsetData", params.OffsetData)
	}
	if params.FilterStartTimeInclusive > 0 {
		query.Set("filterBeginKlineTimeInclusive", strconv.FormatInt(params.FilterStartTimeInclusive, 10))
	}
	if params.FilterEndTimeExclusive > 0 {
		query.Set("filterEndKlineTimeExclusive", strconv.FormatInt(params.FilterEndTimeExclusive, 10))
	}

	var page KLinePage
	if err := c.get(ctx, "/api/v1/public/quote/getKline", query, &page); err != nil {
		return nil, fmt.Errorf("get kline: %w", err)
	}
	return &page, nil
}

// GetMultiContractKLine fetches the latest candles for several contracts
// at once.
func (c *Client) GetMultiContractKLine(ctx context.Context, params GetMultiContractKLineParams) ([]KLinePage, error) {
	query := url.Values{}
	query.Set("contractIdList", strings.Join(params.ContractIDList, ","))
	query.Set("klineType", params.Interval)
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}

	var pages []KLinePage
	if err := c.get(ctx, "/api/v1/public/quote/getMultiContractKline", query, &pages); err != nil {
		return nil, fmt.Errorf("get multi contract kline: %w", err)
	}
	return pages, nil
}

// GetOrderBookDepth fetches an order book snapshot for a contract.
func (c *Client) GetOrderBookDepth(ctx context.Context, contractID string, limit int) ([]OrderBookDepth, error) {
	query := url.Values{}
	query.Set("contractId", contractID)
	if limit > 0 {
		query.Set("level", strconv.Itoa(limit))
	}

	var depth []OrderBookDepth
	if err := c.get(ctx, "/api/v1/public/quote/getDepth", query, &depth); err != nil {
		return nil, fmt.Errorf("get order book depth: %w", err)
	}
	return depth, nil
}
