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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/European-XFEL/Karabo-sub014/cmd"
	"github.com/European-XFEL/Karabo-sub014/pkg/client"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func run(ctx context.Context, args ...string) (string, error) {
	root := cmd.New()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(GinkgoWriter)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func exitCode(err error) int {
	var c interface{ Code() int }
	if errors.As(err, &c) {
		return c.Code()
	}
	return -1
}

var _ = Describe("convert", func() {

	It("converts between formats", func(ctx context.Context) {
		in := filepath.Join(build, "convert.xml")
		out := filepath.Join(build, "convert.bin")
		h := hash.MustBuild("a.b", int32(1), "c", []string{"x", "y"})
		Expect(codec.SaveFile(ctx, in, h)).To(Succeed())

		_, err := run(ctx, "convert", in, out)
		Expect(err).NotTo(HaveOccurred())

		got, err := codec.LoadFile(ctx, out)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Equal(h)).To(BeTrue())
	})

	It("converts schemas", func(ctx context.Context) {
		out := filepath.Join(build, "motor.bin")
		_, err := run(ctx, "convert", "--schema", schemaFile, out)
		Expect(err).NotTo(HaveOccurred())

		s, err := codec.LoadSchemaFile(ctx, out)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.RootName()).To(Equal("Motor"))
	})

	It("fails on missing files", func(ctx context.Context) {
		_, err := run(ctx, "convert", filepath.Join(build, "missing.xml"), filepath.Join(build, "out.xml"))
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(1))
	})
})

var _ = Describe("dump", func() {

	var file string
	BeforeEach(func(ctx context.Context) {
		file = filepath.Join(build, "dump.bin")
		Expect(codec.SaveFile(ctx, file, hash.MustBuild("motor.speed", 2.5, "name", "m1"))).To(Succeed())
	})

	It("prints Hashes", func(ctx context.Context) {
		out, err := run(ctx, "dump", file)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("'motor' +"))
		Expect(out).To(ContainSubstring("'name' => m1 STRING"))
	})

	It("prints XML", func(ctx context.Context) {
		out, err := run(ctx, "dump", "-o", "xml", file)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("<name"))
		Expect(out).To(ContainSubstring("m1"))
	})

	It("rejects unknown outputs", func(ctx context.Context) {
		_, err := run(ctx, "dump", "-o", "json", file)
		Expect(exitCode(err)).To(Equal(2))
	})
})

var _ = Describe("validate", func() {

	It("accepts valid configurations", func(ctx context.Context) {
		in := filepath.Join(build, "valid.xml")
		out := filepath.Join(build, "validated.bin")
		Expect(codec.SaveFile(ctx, in, hash.MustBuild("speed", int32(9)))).To(Succeed())

		stdout, err := run(ctx, "validate", "--schema", schemaFile, "--out", out, in)
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring("OK"))

		got, err := codec.LoadFile(ctx, out)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Kind("speed")).To(Equal(types.Double))
		Expect(got.GetDouble("speed")).To(Equal(9.0))
	})

	It("injects defaults", func(ctx context.Context) {
		in := filepath.Join(build, "empty.xml")
		Expect(codec.SaveFile(ctx, in, hash.New())).To(Succeed())

		stdout, err := run(ctx, "validate", "--schema", schemaFile, "-o", "pretty", in)
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring("'speed'"))
		Expect(stdout).To(ContainSubstring("DOUBLE"))
	})

	It("reports violations", func(ctx context.Context) {
		in := filepath.Join(build, "invalid.xml")
		Expect(codec.SaveFile(ctx, in, hash.MustBuild("speed", 20.0))).To(Succeed())

		stdout, err := run(ctx, "validate", "--schema", schemaFile, in)
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(1))
		Expect(stdout).To(ContainSubstring("speed: OutOfRange"))
	})
})

var _ = Describe("serve", Serial, func() {

	const psk = "cookiecookiecookiecookie"
	const manager = "karabo/configurationManager"

	var clientConfig string
	var metricsAddr string
	BeforeEach(func() {

		listen := freeAddr()
		metricsAddr = freeAddr()

		serverConfig := writeFile("server.yaml", fmt.Sprintf(`
server:
  listen: %q
  instanceId: %q
  metrics:
    listen: %q
  tls:
    crt: %s
    key: %s
    ca:
      - %s
  auth:
    presharedkey:
      value: %s
configdb:
  schemas:
    motor/1: %s
`, listen, manager, metricsAddr, serverCrt, serverKey, clientCrt, psk, schemaFile))

		clientConfig = writeFile("client.yaml", fmt.Sprintf(`
client:
  address: %q
  name: gui/1
  authority: localhost
  tls:
    crt: %s
    key: %s
    ca:
      - %s
  auth:
    presharedkey:
      value: %s
`, listen, clientCrt, clientKey, serverCrt, psk))

		root := cmd.New()
		root.SetOut(GinkgoWriter)
		root.SetErr(GinkgoWriter)
		root.SetArgs([]string{"serve", "--config", serverConfig})

		wg := sync.WaitGroup{}
		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(func() {
			By("canceling the command context")
			cancel()
			wg.Wait()
		})
		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			By("executing 'karabo serve [ARGS]'")
			Expect(root.ExecuteContext(ctx)).To(Succeed())
		}()

		Eventually(func() (*http.Response, error) {
			return http.Get("http://" + metricsAddr + "/healthz")
		}).Should(HaveHTTPStatus(200))

		Eventually(func() (*http.Response, error) {
			return http.Get("http://" + metricsAddr + "/healthz/ready")
		}).Should(And(HaveHTTPStatus(200), HaveHTTPBody("READY")))
	})

	It("answers checks", func(ctx context.Context) {
		out, err := run(ctx, "check", "--config", clientConfig)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(manager + " api=1\n"))
	})

	It("saves and loads configurations", func(ctx context.Context) {
		cfg := filepath.Join(build, "fast.xml")
		Expect(codec.SaveFile(ctx, cfg, hash.MustBuild("speed", int32(9)))).To(Succeed())

		_, err := run(ctx, "call", "--config", clientConfig, manager, "saveConfiguration", "fast", "motor/1", "@"+cfg)
		Expect(err).NotTo(HaveOccurred())

		out, err := run(ctx, "call", "--config", clientConfig, "--format", "xml", manager, "getConfiguration", "fast", "motor/1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("'name' => fast STRING"))
		Expect(out).To(ContainSubstring("DOUBLE"))

		out, err = run(ctx, "call", "--config", clientConfig, manager, "listConfigurations", "motor/1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("[0]"))

		By("counting calls")
		res, err := http.Get("http://" + metricsAddr + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = res.Body.Close() }()
		body, err := io.ReadAll(res.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("karabo_server_calls"))
	})

	It("reports failing slots", func(ctx context.Context) {
		_, err := run(ctx, "call", "--config", clientConfig, manager, "saveConfiguration", "crazy", "motor/1", "STRING:not a hash")
		var remote *client.RemoteError
		Expect(errors.As(err, &remote)).To(BeTrue())
		Expect(exitCode(err)).To(Equal(1))
	})

	It("reports unknown slots", func(ctx context.Context) {
		_, err := run(ctx, "call", "--config", clientConfig, manager, "nope")
		Expect(err).To(MatchError(client.UnknownSlotError))
	})

	It("refuses unauthenticated clients", func(ctx context.Context) {
		wrong := writeFile("wrong.yaml", `
client:
  auth:
    presharedkey:
      value: not-the-cookie
`)
		_, err := run(ctx, "check", "--config", clientConfig, "--config", wrong)
		Expect(err).To(MatchError(client.UnauthorizedError))
	})
})
