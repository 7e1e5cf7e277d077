package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues a video reference.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	return call[SubmitResponse](c, "Submit", req)
}

// Status returns an owner's jobs matching prefix.
func (c *Client) Status(ownerID, prefix string) (*JobStatusResponse, error) {
	return call[JobStatusResponse](c, "Status", JobStatusRequest{OwnerID: ownerID, Prefix: prefix})
}

// Cancel cancels an owner's jobs matching prefix.
func (c *Client) Cancel(ownerID, prefix string) (*CancelResponse, error) {
	return call[CancelResponse](c, "Cancel", CancelRequest{OwnerID: ownerID, Prefix: prefix})
}

// List returns jobs optionally filtered by statuses.
func (c *Client) List(statuses []string) (*ListResponse, error) {
	return call[ListResponse](c, "List", ListRequest{Statuses: statuses})
}

// Stats retrieves the daemon status.
func (c *Client) Stats() (*StatsResponse, error) {
	return call[StatsResponse](c, "Stats", StatsRequest{})
}

// Health retrieves job database diagnostics.
func (c *Client) Health() (*HealthResponse, error) {
	return call[HealthResponse](c, "Health", HealthRequest{})
}

// Stop asks the daemon to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
