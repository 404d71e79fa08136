package bridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davekiss/hue-midi-sub000/internal/stream"
)

// Client is a minimal CLIP v2 client covering the collaborator surface the
// streaming core consumes: entertainment configuration lookup, stream
// activation, legacy-id resolution and the REST fallback for individual
// lights. Pure transport, no caching.
type Client struct {
	address    string
	appKey     string
	httpClient *http.Client
}

// NewClient creates a CLIP v2 client. TLS verification is disabled because
// the bridge serves a self-signed certificate.
func NewClient(address, appKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &Client{
		address: address,
		appKey:  appKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Address returns the bridge address.
func (c *Client) Address() string {
	return c.address
}

// Close closes idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Connect tests connectivity to the V2 API.
func (c *Client) Connect(ctx context.Context) error {
	resp, err := c.request(ctx, "GET", "resource", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Hue bridge V2 API: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("https://%s/clip/v2/%s", c.address, path)
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("hue-application-key", c.appKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// getJSON performs a GET and decodes the "data" envelope into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.request(ctx, "GET", path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}

func (c *Client) put(ctx context.Context, path string, body map[string]any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := c.request(ctx, "PUT", path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("PUT %s: status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}

// GetEntertainmentConfigurations lists all entertainment zones.
func (c *Client) GetEntertainmentConfigurations(ctx context.Context) ([]EntertainmentConfiguration, error) {
	var cfgs []EntertainmentConfiguration
	if err := c.getJSON(ctx, "resource/entertainment_configuration", &cfgs); err != nil {
		return nil, err
	}
	return cfgs, nil
}

// GetEntertainmentConfiguration returns one zone by id.
func (c *Client) GetEntertainmentConfiguration(ctx context.Context, id string) (*EntertainmentConfiguration, error) {
	var cfgs []EntertainmentConfiguration
	if err := c.getJSON(ctx, "resource/entertainment_configuration/"+id, &cfgs); err != nil {
		return nil, err
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("entertainment configuration %q not found", id)
	}
	return &cfgs[0], nil
}

// GetLights returns all lights.
func (c *Client) GetLights(ctx context.Context) ([]Light, error) {
	var lights []Light
	if err := c.getJSON(ctx, "resource/light", &lights); err != nil {
		return nil, err
	}
	return lights, nil
}

// UpdateLight PUTs a partial update to a light resource.
func (c *Client) UpdateLight(ctx context.Context, lightID string, update map[string]any) error {
	return c.put(ctx, "resource/light/"+lightID, update)
}

// StartStream activates streaming for a zone. The bridge accepts DTLS
// handshakes on the streaming port only while a zone is active.
func (c *Client) StartStream(ctx context.Context, zoneID string) error {
	return c.put(ctx, "resource/entertainment_configuration/"+zoneID, map[string]any{"action": "start"})
}

// StopStream deactivates streaming for a zone.
func (c *Client) StopStream(ctx context.Context, zoneID string) error {
	return c.put(ctx, "resource/entertainment_configuration/"+zoneID, map[string]any{"action": "stop"})
}

// ChannelMap flattens a zone's channels into the router's mapping list.
// Channel members reference entertainment services, which are owned by
// devices; the owning device's light service supplies the logical light id.
func (c *Client) ChannelMap(ctx context.Context, cfg *EntertainmentConfiguration) ([]stream.Channel, error) {
	var services []EntertainmentService
	if err := c.getJSON(ctx, "resource/entertainment", &services); err != nil {
		return nil, err
	}
	serviceOwner := make(map[string]string, len(services))
	for _, svc := range services {
		serviceOwner[svc.ID] = svc.Owner.RID
	}

	lights, err := c.GetLights(ctx)
	if err != nil {
		return nil, err
	}
	deviceLight := make(map[string]string, len(lights))
	for _, l := range lights {
		deviceLight[l.Owner.RID] = l.ID
	}

	var out []stream.Channel
	for _, ch := range cfg.Channels {
		if len(ch.Members) == 0 {
			continue
		}
		device := serviceOwner[ch.Members[0].Service.RID]
		lightID, ok := deviceLight[device]
		if !ok {
			log.Warn().
				Uint8("channel", ch.ChannelID).
				Str("service", ch.Members[0].Service.RID).
				Msg("Channel member has no owning light, skipping")
			continue
		}
		out = append(out, stream.Channel{
			ID:      ch.ChannelID,
			LightID: lightID,
			X:       ch.Position.X,
			Y:       ch.Position.Y,
			Z:       ch.Position.Z,
		})
	}
	return out, nil
}

// LegacyResolver resolves V1-era light identifiers ("3" or "/lights/3") to
// CLIP v2 light ids. The id table is fetched lazily once; the router caches
// individual results on top of this.
type LegacyResolver struct {
	client  *Client
	timeout time.Duration

	mu     sync.Mutex
	byV1   map[string]string
	loaded bool
}

// NewLegacyResolver creates a resolver backed by the CLIP client.
func NewLegacyResolver(client *Client, timeout time.Duration) *LegacyResolver {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &LegacyResolver{client: client, timeout: timeout}
}

// Resolve implements stream.Resolver.
func (r *LegacyResolver) Resolve(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		lights, err := r.client.GetLights(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to fetch lights for legacy id resolution")
			return "", false
		}
		r.byV1 = make(map[string]string, len(lights))
		for _, l := range lights {
			if l.IDV1 != "" {
				r.byV1[l.IDV1] = l.ID
			}
		}
		r.loaded = true
	}

	key := id
	if !strings.HasPrefix(key, "/lights/") {
		key = "/lights/" + key
	}
	canonical, ok := r.byV1[key]
	return canonical, ok
}

// Invalidate forces a refetch on the next Resolve, used when the zone
// configuration is swapped.
func (r *LegacyResolver) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.byV1 = nil
	r.mu.Unlock()
}
