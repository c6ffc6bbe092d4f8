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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	mrand "math/rand"
	"os"
	"path/filepath"
	"time"
)

// SelfSignedCertificate creates a short-lived P-256 certificate usable for
// both ends of a test connection.
func SelfSignedCertificate(cn string, sans ...string) (*tls.Certificate, error) {

	var key *ecdsa.PrivateKey
	if k, e := ecdsa.GenerateKey(elliptic.P256(), rand.Reader); e == nil {
		key = k
	} else {
		return nil, e
	}

	crt := &x509.Certificate{
		SerialNumber: big.NewInt(int64(mrand.Int())),
		Subject: pkix.Name{
			CommonName:   cn,
			Organization: []string{"Karabo"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		DNSNames:              sans,
	}

	b, err := x509.CreateCertificate(rand.Reader, crt, crt, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	if crt, err = x509.ParseCertificate(b); err != nil {
		return nil, err
	}
	return &tls.Certificate{
		Certificate: [][]byte{b},
		PrivateKey:  key,
		Leaf:        crt,
	}, nil
}

func CertPool(certs ...*tls.Certificate) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c.Leaf)
	}
	return pool
}

// WritePEM stores cert as <name>.crt and <name>.key in dir and returns both paths.
func WritePEM(dir, name string, cert *tls.Certificate) (crtFile, keyFile string, err error) {
	key, ok := cert.PrivateKey.(*ecdsa.PrivateKey)
	if !ok {
		return "", "", os.ErrInvalid
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return "", "", err
	}
	crtFile = filepath.Join(dir, name+".crt")
	keyFile = filepath.Join(dir, name+".key")
	crt := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]})
	if err = os.WriteFile(crtFile, crt, 0o644); err != nil {
		return "", "", err
	}
	k := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	if err = os.WriteFile(keyFile, k, 0o600); err != nil {
		return "", "", err
	}
	return crtFile, keyFile, nil
}
