// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ner is a client for the NER API: single and batched POSTs to
// /models/ner and a websocket stream on /models/ner/ws.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/cabinet/internal/httputil"
	"github.com/pdiddy/cabinet/pkg/types"
)

// ErrEmptyText is returned when a text to annotate is empty or blank.
var ErrEmptyText = errors.New("empty text")

const (
	nerPath   = "/models/ner"
	nerWSPath = "/models/ner/ws"
)

// Client calls the NER API.
type Client struct {
	BaseURL     string
	WSURL       string
	Token       string
	UserAgent   string
	HTTP        *http.Client
	MaxRetries  int
	Concurrency int

	// TerminalNode, when set, is sent with every text so the API only
	// returns concepts at or below that SNOMED CT identifier.
	TerminalNode string

	// Progress, when set, receives one line per completed text.
	Progress io.Writer
}

// New returns a Client configured from cfg.
func New(cfg types.NERConfig) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(cfg.APIURL, "/"),
		WSURL:       strings.TrimRight(cfg.WSURL, "/"),
		Token:       cfg.Token,
		UserAgent:   cfg.UserAgent,
		HTTP:        &http.Client{Timeout: cfg.Timeout},
		MaxRetries:  cfg.MaxRetries,
		Concurrency: cfg.Concurrency,
	}
}

func (c *Client) request(text string) types.NERRequest {
	return types.NERRequest{Text: text, TerminalNode: c.TerminalNode}
}

func (c *Client) progress(format string, args ...any) {
	if c.Progress != nil {
		fmt.Fprintf(c.Progress, format, args...)
	}
}

func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// PostSingle submits one text and returns the recognized concepts.
func (c *Client) PostSingle(ctx context.Context, text string) ([]types.NEROutput, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}

	body, err := json.Marshal(c.request(text))
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+nerPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", nerPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("NER API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var outputs []types.NEROutput
	if err := json.NewDecoder(resp.Body).Decode(&outputs); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return outputs, nil
}

// PostMany submits texts concurrently, at most Concurrency at a time. The
// results are sorted by input index. The first failure cancels the rest.
func (c *Client) PostMany(ctx context.Context, texts []string) ([]types.IndexedNER, error) {
	for i, text := range texts {
		if err := checkText(text); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}

	limit := c.Concurrency
	if limit <= 0 {
		limit = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var (
		mu      sync.Mutex
		results = make([]types.IndexedNER, 0, len(texts))
		done    int
	)

	for i, text := range texts {
		g.Go(func() error {
			outputs, err := c.PostSingle(gctx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			mu.Lock()
			results = append(results, types.IndexedNER{Index: i, Outputs: outputs})
			done++
			c.progress("ner %d/%d\n", done, len(texts))
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].Index < results[b].Index })
	return results, nil
}

// Stream sends texts one at a time over the websocket endpoint and calls fn
// with each reply, in input order. A non-nil error from fn stops the stream.
func (c *Client) Stream(ctx context.Context, texts []string, fn func(types.IndexedNER) error) error {
	for i, text := range texts {
		if err := checkText(text); err != nil {
			return fmt.Errorf("text %d: %w", i, err)
		}
	}

	origin := c.BaseURL
	if origin == "" {
		origin = "http://localhost"
	}
	cfg, err := websocket.NewConfig(c.WSURL+nerWSPath, origin)
	if err != nil {
		return fmt.Errorf("configuring websocket: %w", err)
	}
	if c.Token != "" {
		cfg.Header.Set("Authorization", "Bearer "+c.Token)
	}

	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", nerWSPath, err)
	}
	defer ws.Close()

	// Unblock a pending receive when the context ends.
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for i, text := range texts {
		msg, err := json.Marshal(c.request(text))
		if err != nil {
			return fmt.Errorf("encoding text %d: %w", i, err)
		}
		if err := websocket.Message.Send(ws, msg); err != nil {
			return c.streamErr(ctx, fmt.Errorf("sending text %d: %w", i, err))
		}

		var reply []byte
		if err := websocket.Message.Receive(ws, &reply); err != nil {
			return c.streamErr(ctx, fmt.Errorf("receiving text %d: %w", i, err))
		}

		var out types.NEROutput
		if err := json.Unmarshal(reply, &out); err != nil {
			return fmt.Errorf("decoding reply %d: %w", i, err)
		}

		c.progress("ner %d/%d\n", i+1, len(texts))
		if err := fn(types.IndexedNER{Index: i, Outputs: []types.NEROutput{out}}); err != nil {
			return err
		}
	}
	return nil
}

// streamErr prefers the context error when the connection was closed by
// cancellation.
func (c *Client) streamErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
