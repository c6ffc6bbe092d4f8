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

package helpers

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/spf13/viper"
)

// TLS is the shape of the server.tls and client.tls configuration keys.
type TLS struct {
	CA              []string `mapstructure:"ca"`
	CertificateFile string   `mapstructure:"crt"`
	KeyFile         string   `mapstructure:"key"`
	// ServerName overrides the name clients verify the server certificate against.
	ServerName string `mapstructure:"serverName"`
	// MinVersion is "1.2" or "1.3"; 1.2 when unset.
	MinVersion string `mapstructure:"minVersion"`
}

// ServerTLSConfig requires and verifies client certificates when CAs are configured.
func ServerTLSConfig(cfg *viper.Viper) (*tls.Config, error) {
	opts, err := unmarshalTLS(cfg)
	if err != nil {
		return nil, err
	}
	config, err := opts.config()
	if err != nil {
		return nil, err
	}
	if len(opts.CA) > 0 {
		if config.ClientCAs, err = opts.pool(); err != nil {
			return nil, err
		}
		config.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return config, nil
}

// ClientTLSConfig trusts the configured CAs, or the system pool without any.
func ClientTLSConfig(cfg *viper.Viper) (*tls.Config, error) {
	opts, err := unmarshalTLS(cfg)
	if err != nil {
		return nil, err
	}
	config, err := opts.config()
	if err != nil {
		return nil, err
	}
	config.ServerName = opts.ServerName
	if len(opts.CA) > 0 {
		if config.RootCAs, err = opts.pool(); err != nil {
			return nil, err
		}
	} else if pool, e := x509.SystemCertPool(); e == nil {
		config.RootCAs = pool
	}
	return config, nil
}

func unmarshalTLS(cfg *viper.Viper) (TLS, error) {
	opts := TLS{}
	if err := cfg.Unmarshal(&opts); err != nil {
		return opts, WrapError(err, ConfigErrorCode)
	}
	return opts, nil
}

func (t TLS) config() (*tls.Config, error) {

	config := &tls.Config{MinVersion: tls.VersionTLS12}
	switch t.MinVersion {
	case "", "1.2":
	case "1.3":
		config.MinVersion = tls.VersionTLS13
	default:
		return nil, NewError("unsupported tls minVersion: "+t.MinVersion, ConfigErrorCode)
	}

	if t.CertificateFile == "" {
		return config, nil
	}
	if t.KeyFile == "" {
		return nil, NewError("key file is required if certificate file is defined", ConfigErrorCode)
	}
	crt, err := os.ReadFile(t.CertificateFile)
	if err != nil {
		return nil, WrapError(err, ConfigErrorCode)
	}
	key, err := os.ReadFile(t.KeyFile)
	if err != nil {
		return nil, WrapError(err, ConfigErrorCode)
	}
	certificate, err := tls.X509KeyPair(crt, key)
	if err != nil {
		return nil, WrapError(err, ConfigErrorCode)
	}
	config.Certificates = []tls.Certificate{certificate}
	return config, nil
}

func (t TLS) pool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, c := range t.CA {
		crt, err := os.ReadFile(c)
		if err != nil {
			return nil, WrapError(err, ConfigErrorCode)
		}
		if !pool.AppendCertsFromPEM(crt) {
			return nil, NewError("invalid certificate: "+c, ConfigErrorCode)
		}
	}
	return pool, nil
}
