/*
 *     Copyright (c) 2023. Raft LLC
 *
 *     This program is free software: you can redistribute it and/or modify
 *     it under the terms of the GNU General Public License as published by
 *     the Free Software Foundation, either version 3 of the License, or
 *     (at your option) any later version.
 *
 *     This program is distributed in the hope that it will be useful,
 *     but WITHOUT ANY WARRANTY; without even the implied warranty of
 *     MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *     GNU General Public License for more details.
 *
 *     You should have received a copy of the GNU General Public License
 *     along with this program.  If not, see <https://www.gnu.org/licenses/>.
 *
 */

package helpers_test

import (
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/European-XFEL/Karabo-sub014/cmd/helpers"
	ihelpers "github.com/European-XFEL/Karabo-sub014/internal/helpers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {

	// Given
	base := errors.New("boom")
	coded := helpers.WrapError(base, helpers.ConfigErrorCode)

	// When
	rewrapped := helpers.WrapError(coded, helpers.FailureCode)

	// Then
	assert.Equal(t, helpers.ConfigErrorCode, rewrapped.Code())
	assert.ErrorIs(t, rewrapped, base)
}

func TestSecret(t *testing.T) {
	t.Setenv("KARABO_TEST_PSK", "from-env")

	assert.Equal(t, "direct", (&helpers.Secret{Value: "direct", FromEnv: "KARABO_TEST_PSK"}).Resolve())
	assert.Equal(t, "from-env", (&helpers.Secret{FromEnv: "KARABO_TEST_PSK"}).Resolve())
	assert.Equal(t, "", (&helpers.Secret{}).Resolve())
}

func TestConfigFiles(t *testing.T) {

	// Given
	dir := t.TempDir()
	file := dir + "/karabo.yaml"
	require.NoError(t, os.WriteFile(file, []byte("server:\n  listen: :5555\n"), 0o644))
	t.Setenv(helpers.ConfigEnv, file)
	t.Setenv("KARABO_SERVER_INSTANCEID", "Broker_1")
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringSlice("config", nil, "")

	// When
	cfg, err := helpers.Config(cmd)

	// Then
	require.NoError(t, err)
	assert.Equal(t, ":5555", cfg.GetString("server.listen"))
	assert.Equal(t, "Broker_1", cfg.GetString("server.instanceId"))
}

func TestMonitor(t *testing.T) {

	// Given
	m, err := helpers.NewMonitor("Broker_1")
	require.NoError(t, err)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	get := func(path string) (int, string) {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer func() { _ = res.Body.Close() }()
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return res.StatusCode, string(body)
	}

	// When
	code, body := get("/healthz/ready")

	// Then
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "NOT READY", body)

	// When
	m.SetReady(true)
	code, body = get("/healthz/ready")

	// Then
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "READY", body)

	_, body = get("/metrics")
	assert.Contains(t, body, `karabo_broker_info{instance_id="Broker_1"} 1`)
}

func TestSub(t *testing.T) {
	cfg := viper.New()
	cfg.Set("server.listen", ":1234")

	assert.Equal(t, ":1234", helpers.Sub(cfg, "server").GetString("listen"))
	assert.NotNil(t, helpers.Sub(cfg, "missing"))
}

func TestTLSConfig(t *testing.T) {

	// Given
	dir := t.TempDir()
	crt, err := ihelpers.SelfSignedCertificate("karabo", "localhost")
	require.NoError(t, err)
	crtFile, keyFile, err := ihelpers.WritePEM(dir, "server", crt)
	require.NoError(t, err)

	cfg := viper.New()
	cfg.Set("crt", crtFile)
	cfg.Set("key", keyFile)
	cfg.Set("ca", []string{crtFile})
	cfg.Set("minVersion", "1.3")

	// When
	server, err := helpers.ServerTLSConfig(cfg)
	require.NoError(t, err)
	client, err := helpers.ClientTLSConfig(cfg)
	require.NoError(t, err)

	// Then
	assert.Equal(t, tls.RequireAndVerifyClientCert, server.ClientAuth)
	assert.Len(t, server.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS13), client.MinVersion)
	assert.NotNil(t, client.RootCAs)
}

func TestTLSConfigErrors(t *testing.T) {
	dir := t.TempDir()
	bad := dir + "/bad.crt"
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o644))

	cfg := viper.New()
	cfg.Set("crt", bad)
	_, err := helpers.ServerTLSConfig(cfg)
	assert.EqualError(t, err, "key file is required if certificate file is defined")

	cfg = viper.New()
	cfg.Set("ca", []string{bad})
	_, err = helpers.ClientTLSConfig(cfg)
	var coded helpers.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, helpers.ConfigErrorCode, coded.Code())

	cfg = viper.New()
	cfg.Set("minVersion", "1.0")
	_, err = helpers.ClientTLSConfig(cfg)
	assert.Error(t, err)
}
