// Package mock implements a scripted LLM Client for tests and dry runs.
// Without a script it answers every prompt with a fixed summary object.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voicebot/codexreview/internal/llm"
)

// ClientName is the identifier for the Mock client
const ClientName = "mock"

// DefaultContent is returned when no reply is scripted.
const DefaultContent = `{"summary":"Mock summary for local runs."}`

func init() {
	llm.Register(ClientName, NewClient)
}

// Reply is one scripted answer.
type Reply struct {
	Content string
	Err     error
	Delay   time.Duration
}

// Client implements the llm.Client interface with scripted replies
type Client struct {
	*llm.BaseClient

	mu       sync.Mutex
	replies  []Reply
	requests []*llm.Request
}

// NewClient creates a new Mock client
func NewClient(config *llm.ClientConfig) (llm.Client, error) {
	if config == nil {
		config = llm.NewClientConfig(ClientName)
	}
	return &Client{BaseClient: llm.NewBaseClient(config)}, nil
}

// New creates a mock client that answers with the given replies in order.
// The last reply repeats once the script is exhausted.
func New(replies ...Reply) *Client {
	return &Client{
		BaseClient: llm.NewBaseClient(llm.NewClientConfig(ClientName)),
		replies:    replies,
	}
}

// Available always returns true for mock client
func (c *Client) Available() bool {
	return true
}

// Close is a no-op
func (c *Client) Close() error {
	return nil
}

// Execute returns the next scripted reply
func (c *Client) Execute(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	startTime := time.Now()
	c.LogRequest(req, "execute")

	c.mu.Lock()
	c.requests = append(c.requests, req)
	reply := Reply{Content: DefaultContent}
	if len(c.replies) > 0 {
		reply = c.replies[0]
		if len(c.replies) > 1 {
			c.replies = c.replies[1:]
		}
	}
	c.mu.Unlock()

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-ctx.Done():
			return nil, llm.NewClientError(ClientName, "execute", "canceled", ctx.Err())
		}
	}

	if reply.Err != nil {
		c.LogResponse(req, nil, time.Since(startTime), reply.Err)
		return nil, reply.Err
	}

	resp := &llm.Response{
		Content:  reply.Content,
		Model:    c.GetConfig().GetModel(req),
		Duration: time.Since(startTime),
	}
	req.CopyMetadata(resp)
	c.LogResponse(req, resp, resp.Duration, nil)
	return resp, nil
}

// Requests returns the requests received so far
func (c *Client) Requests() []*llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*llm.Request, len(c.requests))
	copy(out, c.requests)
	return out
}
