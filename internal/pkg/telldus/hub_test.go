package telldus

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const (
	twoDevices = `{"device":[{"id":1,"name":"Lamp","methods":19},{"id":2,"name":"Blind","methods":896}]}`
	oneSensor  = `{"sensor":[{"id":10,"name":"Outside","data":[{"name":"temp","scale":"0","value":"3"}]}]}`
)

func TestHub_Refresh(t *testing.T) {
	hub, srv := newTestHub(t)
	srv.SetDevices(twoDevices)
	srv.SetSensors(oneSensor)

	assert.True(t, hub.Refresh(context.Background()))
	assert.Equal(t, []string{"1", "10", "2"}, hub.IDs())
	assert.Len(t, hub.Devices(), 3)
}

func TestHub_RefreshPartial(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)
	hub, srv := newTestHub(t)
	srv.SetDevices(twoDevices)
	srv.SetSensors(oneSensor)
	require.True(t, hub.Refresh(context.Background()))

	srv.Fail("sensors/list", true)
	assert.False(t, hub.Refresh(context.Background()))
	assert.True(t, hub.IsAvailable("1"))
	assert.True(t, hub.IsAvailable("2"))
	assert.False(t, hub.IsAvailable("10"))
	assert.Equal(t, 1, logs.FilterMessage("partial update").Len())

	srv.Fail("sensors/list", false)
	srv.Fail("devices/list", true)
	assert.False(t, hub.Refresh(context.Background()))
	assert.Equal(t, []string{"10"}, hub.IDs())
}

func TestHub_ValidateConnectivity(t *testing.T) {
	hub, srv := newTestHub(t)

	assert.False(t, hub.ValidateConnectivity(context.Background()), "empty list")

	srv.SetDevices(twoDevices)
	assert.True(t, hub.ValidateConnectivity(context.Background()))

	srv.SetDevices(`{"error":"Unauthorized"}`)
	assert.False(t, hub.ValidateConnectivity(context.Background()))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"aud": "telldus-integration",
		"exp": exp.Unix(),
	}).SignedString([]byte("hub-secret"))
	require.NoError(t, err)

	got, err := TokenExpiry(signed)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"aud": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = TokenExpiry(noExp)
	assert.ErrorIs(t, err, ErrNoExpiry)

	_, err = TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}
