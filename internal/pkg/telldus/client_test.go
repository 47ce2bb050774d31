package telldus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anicoll/telldus-integration/internal/pkg/telldus/telldustest"
)

func observeLogs(t *testing.T, level zapcore.LevelEnabler) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	return logs
}

func newTestClient(t *testing.T, srv *telldustest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, "secret-token")
	require.NoError(t, err)
	return c
}

func TestApiBaseURL(t *testing.T) {
	tests := map[string]struct {
		host    string
		want    string
		wantErr bool
	}{
		"bare address":  {host: "192.168.1.20", want: "http://192.168.1.20/api/"},
		"with scheme":   {host: "http://hub.local:8080", want: "http://hub.local:8080/api/"},
		"trailing path": {host: "https://hub.local/", want: "https://hub.local/api/"},
		"empty":         {host: "  ", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			u, err := apiBaseURL(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestClient_DevicesSendsTokenAndParams(t *testing.T) {
	srv := telldustest.NewServer()
	defer srv.Close()
	srv.SetDevices(`{"device":[{"id":1,"name":"Lamp","methods":19,"state":2,"statevalue":""}]}`)

	devices, err := newTestClient(t, srv).Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "1", devices[0].DeviceID())
	assert.Equal(t, "Lamp", devices[0].Name)
	assert.Equal(t, TurnOn|TurnOff|Dim, devices[0].Methods)
	assert.False(t, devices[0].IsSensor())

	req, ok := srv.LastRequest("devices/list")
	require.True(t, ok)
	assert.Equal(t, "Bearer secret-token", req.Authorization)
	assert.Equal(t, "915", req.Query.Get("supportedMethods"))
	assert.Equal(t, "0", req.Query.Get("includeIgnored"))
}

func TestClient_SensorsAlwaysCarryData(t *testing.T) {
	srv := telldustest.NewServer()
	defer srv.Close()
	srv.SetSensors(`{"sensor":[
		{"id":"7","name":"Outside","battery":254,"lastUpdated":1700000000,"data":[{"name":"temp","scale":0,"value":"21.5"}]},
		{"id":"8","name":"Bare"}
	]}`)

	sensors, err := newTestClient(t, srv).Sensors(context.Background())
	require.NoError(t, err)
	require.Len(t, sensors, 2)
	assert.True(t, sensors[0].IsSensor())
	assert.Equal(t, "0", sensors[0].Data[0].Scale.String())
	assert.Equal(t, "21.5", sensors[0].Data[0].Value.String())
	assert.True(t, sensors[1].IsSensor())
	assert.Empty(t, sensors[1].Data)

	req, ok := srv.LastRequest("sensors/list")
	require.True(t, ok)
	assert.Equal(t, "1", req.Query.Get("includeValues"))
	assert.Equal(t, "1", req.Query.Get("includeScale"))
}

func TestClient_RemoteError(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)
	srv := telldustest.NewServer()
	defer srv.Close()
	srv.SetDevices(`{"error":"Token expired"}`)

	devices, err := newTestClient(t, srv).Devices(context.Background())
	assert.Nil(t, devices)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "Token expired", remote.Message)
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Equal(t, 1, logs.FilterMessage("failed request").Len())
}

func TestClient_TransportFailures(t *testing.T) {
	tests := map[string]func(srv *telldustest.Server){
		"server error":   func(srv *telldustest.Server) { srv.Fail("devices/list", true) },
		"malformed json": func(srv *telldustest.Server) { srv.SetDevices(`{"device":[`) },
		"wrong shape":    func(srv *telldustest.Server) { srv.SetDevices(`{"device":{"id":1}}`) },
	}
	for name, setup := range tests {
		t.Run(name, func(t *testing.T) {
			logs := observeLogs(t, zapcore.WarnLevel)
			srv := telldustest.NewServer()
			defer srv.Close()
			setup(srv)

			_, err := newTestClient(t, srv).Devices(context.Background())
			assert.ErrorIs(t, err, ErrTransport)
			assert.Equal(t, 1, logs.FilterMessage("failed request").Len())
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewClient(addr, "t")
	require.NoError(t, err)
	_, err = c.Devices(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_Execute(t *testing.T) {
	srv := telldustest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv)

	require.NoError(t, c.Execute(context.Background(), "device/turnOn", url.Values{"id": {"3"}}))
	req, ok := srv.LastRequest("device/turnOn")
	require.True(t, ok)
	assert.Equal(t, "3", req.Query.Get("id"))

	srv.SetCommandResponse(`{"status":"failed"}`)
	err := c.Execute(context.Background(), "device/turnOn", url.Values{"id": {"3"}})
	assert.ErrorIs(t, err, ErrCommandRejected)

	srv.SetCommandResponse(`{"status":"success","error":"no such device"}`)
	err = c.Execute(context.Background(), "device/turnOn", url.Values{"id": {"3"}})
	var remote *RemoteError
	assert.ErrorAs(t, err, &remote)
}

func TestClient_TimeoutIsEnforced(t *testing.T) {
	c, err := NewClient("hub.local", "t", WithHTTPClient(&http.Client{}))
	require.NoError(t, err)
	assert.Equal(t, RequestTimeout, c.httpClient.Timeout)
}
