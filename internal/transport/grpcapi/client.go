package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ishaileshpant/fl-go/internal/engine"
	"github.com/ishaileshpant/fl-go/internal/eventfabric"
)

// Client is the collaborator-side wrapper around a grpc.ClientConn dialed
// against RegisterServer's listener (spec §4.10's SendingUpdate/Awaiting
// phases only need these three calls).
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed conn (mTLS/plaintext dial options are
// the caller's concern, per spec §1's "wire transport is external").
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, payload []byte) ([]byte, error) {
	in := wrapperspb.Bytes(payload)
	out := new(wrapperspb.BytesValue)
	fullMethod := fmt.Sprintf("/%s/%s", ServiceName, method)
	if err := c.conn.Invoke(ctx, fullMethod, in, out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

// SubmitMessage sends a signed/encoded update message and returns the
// engine's response (spec §4.10 SendingUpdate -> Awaiting transition).
func (c *Client) SubmitMessage(ctx context.Context, raw []byte) (engine.Response, error) {
	out, err := c.invoke(ctx, "SubmitMessage", raw)
	if err != nil {
		return engine.Response{}, err
	}
	return decodeResponse(out)
}

// FetchModel retrieves the latest published global model, or nil if none
// has been published yet (spec §4.8 fetch_model).
func (c *Client) FetchModel(ctx context.Context) (*eventfabric.SharedModel, error) {
	out, err := c.invoke(ctx, "FetchModel", nil)
	if err != nil {
		return nil, err
	}
	return decodeSharedModel(out)
}

// FetchStats retrieves the most recently published round stats, or nil if
// none has been published yet (spec §4.8 fetch_stats).
func (c *Client) FetchStats(ctx context.Context) (*eventfabric.Stats, error) {
	out, err := c.invoke(ctx, "FetchStats", nil)
	if err != nil {
		return nil, err
	}
	return decodeStats(out)
}
