package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

// APIClient talks to the sos-server: the HTTP surface plus the realtime
// event channel. It implements Sender for the submission controller.
type APIClient struct {
	baseURL       string
	adminPassword string
	http          *http.Client
}

func NewAPIClient(baseURL, adminPassword string) *APIClient {
	return &APIClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		adminPassword: adminPassword,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *APIClient) Send(ctx context.Context, sub models.Submission) (*models.Alert, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sos", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("server rejected alert: %s", readMessage(resp))
	}

	var alert models.Alert
	if err := json.NewDecoder(resp.Body).Decode(&alert); err != nil {
		return nil, fmt.Errorf("error decoding created alert: %w", err)
	}
	return &alert, nil
}

func (c *APIClient) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sos", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching alerts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching alerts: %s", readMessage(resp))
	}

	var alerts []models.Alert
	if err := json.NewDecoder(resp.Body).Decode(&alerts); err != nil {
		return nil, fmt.Errorf("error decoding alerts: %w", err)
	}
	return alerts, nil
}

func (c *APIClient) ResolveAlert(ctx context.Context, id string) (*models.Alert, error) {
	req, err := c.adminRequest(ctx, http.MethodPatch, "/api/sos/"+id+"/resolve")
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error resolving alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error resolving alert: %s", readMessage(resp))
	}

	var alert models.Alert
	if err := json.NewDecoder(resp.Body).Decode(&alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *APIClient) DeleteAlert(ctx context.Context, id string) error {
	req, err := c.adminRequest(ctx, http.MethodDelete, "/api/sos/"+id)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error deleting alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error deleting alert: %s", readMessage(resp))
	}
	return nil
}

func (c *APIClient) DeleteResolved(ctx context.Context) (int, []string, error) {
	req, err := c.adminRequest(ctx, http.MethodDelete, "/api/sos/resolved")
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error clearing resolved alerts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("error clearing resolved alerts: %s", readMessage(resp))
	}

	var out struct {
		Deleted int      `json:"deleted"`
		IDs     []string `json:"ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, nil, err
	}
	return out.Deleted, out.IDs, nil
}

// Subscribe dials the realtime channel and delivers events until the
// context is cancelled or the connection drops. The returned channel is
// closed on exit; the caller resynchronizes with ListAlerts after a
// reconnect, since the channel carries deltas only.
func (c *APIClient) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error connecting to event stream: %w", err)
	}

	events := make(chan models.Event, 16)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(events)
		for {
			var ev models.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (c *APIClient) adminRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(adminHeader, c.adminPassword)
	return req, nil
}

const adminHeader = "X-Admin-Password"

func readMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return resp.Status
}
