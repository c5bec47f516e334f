package rpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cuemby/statekeep/pkg/errs"
)

// Client is a thin wrapper over the generated-style StateManagerClient:
// dial once, expose typed passthrough methods, close on shutdown.
type Client struct {
	conn *grpc.ClientConn
	rpc  StateManagerClient
}

// Dial connects to addr using the JSON codec this service negotiates.
// There is no mTLS here — the admin surface is meant to run behind the
// same trust boundary as the server process (loopback or a unix
// socket).
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, errs.New(errs.Unknown, "rpcapi.Dial", err)
	}
	return &Client{conn: conn, rpc: NewStateManagerClient(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) InitApp(ctx context.Context, appID string) (*InitAppResponse, error) {
	return c.rpc.InitApp(ctx, &InitAppRequest{AppID: appID})
}

func (c *Client) Get(ctx context.Context, appID string, keys []string) (*GetResponse, error) {
	return c.rpc.Get(ctx, &GetRequest{AppID: appID, Keys: keys})
}

func (c *Client) Set(ctx context.Context, appID string, parts []KeyValue, etag string) (*SetResponse, error) {
	return c.rpc.Set(ctx, &SetRequest{AppID: appID, Parts: parts, ETag: etag})
}

func (c *Client) Checkpoints(ctx context.Context, appID string) (*CheckpointsResponse, error) {
	return c.rpc.Checkpoints(ctx, &CheckpointsRequest{AppID: appID})
}

func (c *Client) CreateCheckpoint(ctx context.Context, appID, payload, etag string) (*CreateCheckpointResponse, error) {
	return c.rpc.CreateCheckpoint(ctx, &CreateCheckpointRequest{AppID: appID, Payload: payload, ETag: etag})
}

func (c *Client) Revert(ctx context.Context, appID, checkpointID, etag string) (*RevertResponse, error) {
	return c.rpc.Revert(ctx, &RevertRequest{AppID: appID, CheckpointID: checkpointID, ETag: etag})
}

func (c *Client) Cleanup(ctx context.Context, appID, untilCheckpoint, etag string) (*CleanupResponse, error) {
	return c.rpc.Cleanup(ctx, &CleanupRequest{AppID: appID, UntilCheckpoint: untilCheckpoint, ETag: etag})
}

func (c *Client) Reset(ctx context.Context, appID, etag string) (*ResetResponse, error) {
	return c.rpc.Reset(ctx, &ResetRequest{AppID: appID, ETag: etag})
}

// RemoveApp issues the admin RemoveApp RPC with adminToken.
func (c *Client) RemoveApp(ctx context.Context, appID, adminToken string) (*RemoveAppResponse, error) {
	return c.rpc.RemoveApp(ctx, &RemoveAppRequest{AppID: appID, AdminToken: adminToken})
}
