package gecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/model"
)

const (
	DefaultBaseURL = "https://api.coingecko.com"
	maxPerPage     = 250
	apiKeyHeader   = "x-cg-demo-api-key"
)

type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RequestsPerSec  float64 // 0 = unlimited
	Burst           int
	PerPageMax      int
	BreakerFailures uint32 // 0 disables the breaker
	BreakerCooldown time.Duration
}

// Client talks to a CoinGecko-compatible REST API (or a relay in front of it).
// It serves both the instrument universe and per-instrument tickers.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	perPage    int
	breaker    *gobreaker.CircuitBreaker[[]port.Ticker]
}

func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PerPageMax <= 0 || cfg.PerPageMax > maxPerPage {
		cfg.PerPageMax = maxPerPage
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		perPage:    cfg.PerPageMax,
	}
	if cfg.RequestsPerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}
	if cfg.BreakerFailures > 0 {
		threshold := cfg.BreakerFailures
		c.breaker = gobreaker.NewCircuitBreaker[[]port.Ticker](gobreaker.Settings{
			Name:        "gecko-tickers",
			MaxRequests: 1,
			Timeout:     cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// 调用方取消不算上游故障
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		})
	}
	return c
}

type marketRow struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// ListTopInstruments returns up to limit instruments in market-cap order,
// paging when limit exceeds the per-page maximum.
func (c *Client) ListTopInstruments(ctx context.Context, limit int) ([]model.Instrument, error) {
	if limit <= 0 {
		return nil, nil
	}
	perPage := min(limit, c.perPage)
	out := make([]model.Instrument, 0, limit)

	for page := 1; len(out) < limit; page++ {
		q := url.Values{}
		q.Set("vs_currency", "usd")
		q.Set("order", "market_cap_desc")
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))
		q.Set("sparkline", "false")

		var rows []marketRow
		if err := c.getJSON(ctx, "/api/v3/coins/markets", q, &rows); err != nil {
			return nil, fmt.Errorf("list markets page %d: %w", page, err)
		}
		for _, r := range rows {
			if r.ID == "" {
				continue
			}
			out = append(out, model.Instrument{ID: r.ID, Symbol: strings.ToUpper(r.Symbol)})
		}
		if len(rows) < perPage {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type tickersResponse struct {
	Tickers []struct {
		Base          string   `json:"base"`
		Target        string   `json:"target"`
		Last          *float64 `json:"last"`
		ConvertedLast struct {
			USD *float64 `json:"usd"`
		} `json:"converted_last"`
		Market struct {
			Name       string `json:"name"`
			Identifier string `json:"identifier"`
		} `json:"market"`
	} `json:"tickers"`
}

// ListTickers returns every venue ticker reported for the instrument.
func (c *Client) ListTickers(ctx context.Context, instrumentID string) ([]port.Ticker, error) {
	if c.breaker == nil {
		return c.fetchTickers(ctx, instrumentID)
	}
	return c.breaker.Execute(func() ([]port.Ticker, error) {
		return c.fetchTickers(ctx, instrumentID)
	})
}

func (c *Client) fetchTickers(ctx context.Context, instrumentID string) ([]port.Ticker, error) {
	q := url.Values{}
	q.Set("include_exchange_logo", "false")

	var resp tickersResponse
	path := "/api/v3/coins/" + url.PathEscape(instrumentID) + "/tickers"
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return nil, err
	}

	out := make([]port.Ticker, 0, len(resp.Tickers))
	for _, t := range resp.Tickers {
		out = append(out, port.Ticker{
			Base:             t.Base,
			Target:           t.Target,
			Last:             t.Last,
			ConvertedLastUSD: t.ConvertedLast.USD,
			MarketName:       t.Market.Name,
			MarketIdentifier: t.Market.Identifier,
		})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(resp.StatusCode, endpoint, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

var _ port.MarketData = (*Client)(nil)
