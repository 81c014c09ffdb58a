package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote NativeBridge service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target and waits until the channel is ready.
func Dial(ctx context.Context, target string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("grpc target is empty")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial grpc %q: %w", target, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for grpc readiness: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Invoke calls method remotely. Arguments and the result travel as JSON.
func (c *Client) Invoke(ctx context.Context, method string, arguments json.RawMessage) (json.RawMessage, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldMethod: structpb.NewStringValue(method),
	}}
	if len(arguments) > 0 {
		arg := new(structpb.Value)
		if err := protojson.Unmarshal(arguments, arg); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}
		req.Fields[fieldArguments] = arg
	}

	out := new(structpb.Value)
	if err := c.conn.Invoke(ctx, invokeFullMethod, req, out); err != nil {
		return nil, err
	}
	return protojson.Marshal(out)
}

// waitForReady blocks until the connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
