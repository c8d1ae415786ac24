package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

const (
	keyFlightSample   = "coach:flight_sample"
	keyConnection     = "coach:connection"
	keyLatestManeuver = "coach:maneuver:latest"

	sampleTTL   = time.Hour
	maneuverTTL = 24 * time.Hour
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// Client caches the latest coach state so clients that connect late can catch up
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

func maneuverKey(attemptID string) string {
	return fmt.Sprintf("coach:maneuver:%s", attemptID)
}

func (c *Client) setData(ctx context.Context, key string, value interface{}, ttl time.Duration, dataType string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", dataType, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", dataType, err)
	}
	return nil
}

// getData reports false when the key does not exist
func (c *Client) getData(ctx context.Context, key string, target interface{}, dataType string) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", dataType, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", dataType, err)
	}

	return true, nil
}

// StoreFlightSample stores the latest flight sample
func (c *Client) StoreFlightSample(ctx context.Context, sample *types.FlightSample) error {
	return c.setData(ctx, keyFlightSample, sample, sampleTTL, "flight sample")
}

// GetFlightSample returns the latest flight sample, or nil when none is cached
func (c *Client) GetFlightSample(ctx context.Context) (*types.FlightSample, error) {
	var sample types.FlightSample
	found, err := c.getData(ctx, keyFlightSample, &sample, "flight sample")
	if err != nil || !found {
		return nil, err
	}
	return &sample, nil
}

// StoreConnectionStatus stores the link status
func (c *Client) StoreConnectionStatus(ctx context.Context, status types.ConnectionStatus) error {
	if err := c.client.Set(ctx, keyConnection, string(status), sampleTTL).Err(); err != nil {
		return fmt.Errorf("failed to store connection status: %w", err)
	}
	return nil
}

// GetConnectionStatus returns the cached link status. Nothing cached means not connected.
func (c *Client) GetConnectionStatus(ctx context.Context) (types.ConnectionStatus, error) {
	val, err := c.client.Get(ctx, keyConnection).Result()
	if errors.Is(err, redis.Nil) {
		return types.NotConnected, nil
	}
	if err != nil {
		return types.NotConnected, fmt.Errorf("failed to get connection status: %w", err)
	}
	return types.ConnectionStatus(val), nil
}

// StoreManeuverStatus stores the status under its attempt and as the latest status
func (c *Client) StoreManeuverStatus(ctx context.Context, status *types.ManeuverStatus) error {
	if err := c.setData(ctx, maneuverKey(status.AttemptID), status, maneuverTTL, "maneuver status"); err != nil {
		return err
	}
	return c.setData(ctx, keyLatestManeuver, status, maneuverTTL, "maneuver status")
}

// GetManeuverStatus returns the last status of an attempt, or nil when unknown
func (c *Client) GetManeuverStatus(ctx context.Context, attemptID string) (*types.ManeuverStatus, error) {
	return c.getManeuverStatus(ctx, maneuverKey(attemptID))
}

// GetLatestManeuverStatus returns the status of the most recent attempt, or nil
func (c *Client) GetLatestManeuverStatus(ctx context.Context) (*types.ManeuverStatus, error) {
	return c.getManeuverStatus(ctx, keyLatestManeuver)
}

func (c *Client) getManeuverStatus(ctx context.Context, key string) (*types.ManeuverStatus, error) {
	var status types.ManeuverStatus
	found, err := c.getData(ctx, key, &status, "maneuver status")
	if err != nil || !found {
		return nil, err
	}
	return &status, nil
}
