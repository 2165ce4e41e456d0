package viiper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// DeviceTypeKeyboard is the VIIPER device type for a HID boot keyboard.
const DeviceTypeKeyboard = "keyboard"

// Client is the typed API on top of a Transport.
type Client struct{ transport *Transport }

// New returns a client for the server at addr.
func New(t *Transport) *Client { return &Client{transport: t} }

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	return call[PingResponse](ctx, c.transport, "ping", nil, nil)
}

func (c *Client) BusList(ctx context.Context) (*BusListResponse, error) {
	return call[BusListResponse](ctx, c.transport, "bus/list", nil, nil)
}

func (c *Client) BusCreate(ctx context.Context, busID uint32) (*BusResponse, error) {
	return call[BusResponse](ctx, c.transport, "bus/create", strconv.FormatUint(uint64(busID), 10), nil)
}

func (c *Client) BusRemove(ctx context.Context, busID uint32) (*BusResponse, error) {
	return call[BusResponse](ctx, c.transport, "bus/remove", strconv.FormatUint(uint64(busID), 10), nil)
}

// DeviceAdd creates a device of devType on busID.
func (c *Client) DeviceAdd(ctx context.Context, busID uint32, req DeviceCreateRequest) (*Device, error) {
	return call[Device](ctx, c.transport, "bus/{id}/add", req, busParams(busID))
}

func (c *Client) DeviceRemove(ctx context.Context, busID uint32, devID string) (*DeviceRemoveResponse, error) {
	return call[DeviceRemoveResponse](ctx, c.transport, "bus/{id}/remove", devID, busParams(busID))
}

func (c *Client) DevicesList(ctx context.Context, busID uint32) (*DevicesListResponse, error) {
	return call[DevicesListResponse](ctx, c.transport, "bus/{id}/list", nil, busParams(busID))
}

// EnsureBus returns the lowest existing bus, or creates the first free one
// in 1..100. created reports whether the caller owns the bus.
func (c *Client) EnsureBus(ctx context.Context) (busID uint32, created bool, err error) {
	list, err := c.BusList(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(list.Buses) > 0 {
		busID = list.Buses[0]
		for _, b := range list.Buses[1:] {
			busID = min(busID, b)
		}
		return busID, false, nil
	}
	var lastErr error
	for try := uint32(1); try <= 100; try++ {
		r, err := c.BusCreate(ctx, try)
		if err == nil {
			return r.BusID, true, nil
		}
		lastErr = err
	}
	return 0, false, fmt.Errorf("create bus: %w", lastErr)
}

// AddDeviceAndConnect creates a device and opens its stream.
func (c *Client) AddDeviceAndConnect(ctx context.Context, busID uint32, req DeviceCreateRequest) (*Stream, *Device, error) {
	dev, err := c.DeviceAdd(ctx, busID, req)
	if err != nil {
		return nil, nil, err
	}
	s, err := c.OpenStream(ctx, dev.BusID, dev.DevID)
	if err != nil {
		return nil, dev, err
	}
	return s, dev, nil
}

func busParams(busID uint32) map[string]string {
	return map[string]string{"id": strconv.FormatUint(uint64(busID), 10)}
}

func call[T any](ctx context.Context, t *Transport, path string, payload any, params map[string]string) (*T, error) {
	raw, err := t.Do(ctx, path, payload, params)
	if err != nil {
		return nil, err
	}
	return parse[T](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem APIError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
