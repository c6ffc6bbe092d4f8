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

package cmd_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/European-XFEL/Karabo-sub014/internal/helpers"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Files shared by all specs, created in BeforeSuite.
var (
	build      string
	schemaFile string
	serverCrt  string
	serverKey  string
	clientCrt  string
	clientKey  string
)

func TestCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	cfg, rep := GinkgoConfiguration()
	if d, ok := t.Deadline(); ok {
		cfg.Timeout = d.Sub(time.Now())
	}
	RunSpecs(t, "Command line", cfg, rep)
}

var _ = BeforeSuite(func(ctx context.Context) {

	var err error
	build, err = os.MkdirTemp("", "karabo-cmd-")
	Expect(err).NotTo(HaveOccurred())

	s := schema.New("Motor")
	Expect(schema.DoubleElement(s).Key("speed").
		MinInc(0).MaxInc(10).
		AssignmentOptional().DefaultValue(1).Reconfigurable().
		Commit()).To(Succeed())
	schemaFile = filepath.Join(build, "motor.xml")
	Expect(codec.SaveSchemaFile(ctx, schemaFile, s)).To(Succeed())

	// Server Cert
	crt, err := helpers.SelfSignedCertificate("karabo", "localhost")
	Expect(err).NotTo(HaveOccurred())
	serverCrt, serverKey, err = helpers.WritePEM(build, "server", crt)
	Expect(err).NotTo(HaveOccurred())

	// Client Cert
	crt, err = helpers.SelfSignedCertificate("gui")
	Expect(err).NotTo(HaveOccurred())
	clientCrt, clientKey, err = helpers.WritePEM(build, "client", crt)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	Expect(os.RemoveAll(build)).To(Succeed())
})

// freeAddr returns a loopback address nothing listens on right now.
func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = l.Close() }()
	return l.Addr().String()
}

func writeFile(name, content string) string {
	f := filepath.Join(build, name)
	Expect(os.WriteFile(f, []byte(content), 0o644)).To(Succeed())
	return f
}
