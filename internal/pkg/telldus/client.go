package telldus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RequestTimeout bounds every call made against the hub.
const RequestTimeout = 30 * time.Second

var (
	ErrTransport       = errors.New("telldus transport failure")
	ErrCommandRejected = errors.New("telldus command rejected")
)

// RemoteError is returned when the hub answers with an "error" field.
type RemoteError struct {
	Path    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("telldus %s: %s", e.Path, e.Message)
}

// Client talks to the Telldus local REST API.
type Client struct {
	apiURL     *url.URL
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// WithHTTPClient replaces the default http client. The request timeout is
// always enforced.
func WithHTTPClient(c *http.Client) func(*Client) {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient builds a client for the hub at host. host may be a bare
// address ("192.168.1.20") or a full base url ("http://hub.local:8080").
func NewClient(host, token string, opts ...func(*Client)) (*Client, error) {
	apiURL, err := apiBaseURL(host)
	if err != nil {
		return nil, err
	}
	c := &Client{
		apiURL:     apiURL,
		token:      token,
		httpClient: &http.Client{},
		logger:     zap.L(),
	}
	for _, o := range opts {
		o(c)
	}
	c.httpClient.Timeout = RequestTimeout
	return c, nil
}

func apiBaseURL(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("telldus host cannot be empty")
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/"
	return u, nil
}

func withToken(token string) func(req *http.Request) {
	return func(req *http.Request) {
		req.Header.Add("Authorization", "Bearer "+token)
	}
}

// Request issues a GET against path and decodes the JSON body into out.
// Failures are logged as warnings and returned; callers treat any error as
// "no data this cycle".
func (c *Client) Request(ctx context.Context, path string, params url.Values, out any) error {
	err := c.request(ctx, path, params, out)
	if err != nil {
		c.logger.Warn("failed request", zap.String("path", path), zap.Error(err))
	}
	return err
}

func (c *Client) request(ctx context.Context, path string, params url.Values, out any) error {
	u := c.apiURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	withToken(c.token)(req)

	c.logger.Debug("request", zap.String("url", u.String()))
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	c.logger.Debug("response", zap.Int("status_code", res.StatusCode), zap.ByteString("body", data))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", ErrTransport, res.StatusCode)
	}

	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if raw, ok := envelope["error"]; ok {
		var msg FlexString
		if err := json.Unmarshal(raw, &msg); err != nil {
			msg = FlexString(raw)
		}
		return &RemoteError{Path: path, Message: msg.String()}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

// Execute runs a command request and requires a "success" status.
func (c *Client) Execute(ctx context.Context, path string, params url.Values) error {
	res := commandResponse{}
	if err := c.Request(ctx, path, params, &res); err != nil {
		return err
	}
	if res.Status != "success" {
		c.logger.Warn("command not successful", zap.String("path", path), zap.String("status", res.Status))
		return fmt.Errorf("%w: status %q", ErrCommandRejected, res.Status)
	}
	return nil
}

// Devices requests the device list.
func (c *Client) Devices(ctx context.Context) ([]DeviceRecord, error) {
	res := deviceListResponse{}
	err := c.Request(ctx, "devices/list", url.Values{
		"supportedMethods": {strconv.Itoa(int(SupportedMethods))},
		"includeIgnored":   {"0"},
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Device == nil {
		res.Device = []DeviceRecord{}
	}
	return res.Device, nil
}

// Sensors requests the sensor list including values and scales.
func (c *Client) Sensors(ctx context.Context) ([]DeviceRecord, error) {
	res := sensorListResponse{}
	err := c.Request(ctx, "sensors/list", url.Values{
		"includeValues":  {"1"},
		"includeScale":   {"1"},
		"includeIgnored": {"0"},
	}, &res)
	if err != nil {
		return nil, err
	}
	for i := range res.Sensor {
		if res.Sensor[i].Data == nil {
			res.Sensor[i].Data = []SensorItem{}
		}
	}
	if res.Sensor == nil {
		res.Sensor = []DeviceRecord{}
	}
	return res.Sensor, nil
}
