package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// WalkerInfo is the state of one walker as reported by the service.
type WalkerInfo struct {
	Name       string
	Kind       string
	Color      string
	X, Y       float64
	Iterations int
	Copies     int
}

// Client talks to a walker service.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient connects to addr without transport security unless opts say otherwise.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkerInfo(s *structpb.Struct) WalkerInfo {
	return WalkerInfo{
		Name:       str(s, "name"),
		Kind:       str(s, "kind"),
		Color:      str(s, "color"),
		X:          s.GetFields()["x"].GetNumberValue(),
		Y:          s.GetFields()["y"].GetNumberValue(),
		Iterations: num(s, "iterations", 0),
		Copies:     num(s, "copies", 0),
	}
}

// CreateWalker adds a walker of the given numeric type. weights is only used by type 4.
func (c *Client) CreateWalker(ctx context.Context, name string, typ int, color string, weights []float64) (WalkerInfo, error) {
	in := map[string]any{"name": name, "type": typ, "color": color}
	if len(weights) > 0 {
		in["weights"] = anyList(weights)
	}
	out, err := c.invoke(ctx, "CreateWalker", in)
	if err != nil {
		return WalkerInfo{}, err
	}
	return walkerInfo(out), nil
}

// Step advances a walker n steps.
func (c *Client) Step(ctx context.Context, name string, n int) (WalkerInfo, error) {
	out, err := c.invoke(ctx, "Step", map[string]any{"name": name, "n": n})
	if err != nil {
		return WalkerInfo{}, err
	}
	return walkerInfo(out), nil
}

// StepAll advances every walker once.
func (c *Client) StepAll(ctx context.Context) ([]WalkerInfo, error) {
	out, err := c.invoke(ctx, "StepAll", map[string]any{})
	if err != nil {
		return nil, err
	}
	var infos []WalkerInfo
	for _, v := range out.GetFields()["walkers"].GetListValue().GetValues() {
		infos = append(infos, walkerInfo(v.GetStructValue()))
	}
	return infos, nil
}

// Stats returns every averaged series of a walker over copies trials, keyed by series name.
func (c *Client) Stats(ctx context.Context, name string, copies int) (map[string][]float64, error) {
	out, err := c.invoke(ctx, "Stats", map[string]any{"name": name, "copies": copies})
	if err != nil {
		return nil, err
	}
	series := out.GetFields()["series"].GetStructValue()
	res := make(map[string][]float64, len(series.GetFields()))
	for k := range series.GetFields() {
		res[k] = floats(series, k)
	}
	return res, nil
}

// Reset drops the trial copies of a walker.
func (c *Client) Reset(ctx context.Context, name string) (WalkerInfo, error) {
	out, err := c.invoke(ctx, "Reset", map[string]any{"name": name})
	if err != nil {
		return WalkerInfo{}, err
	}
	return walkerInfo(out), nil
}
