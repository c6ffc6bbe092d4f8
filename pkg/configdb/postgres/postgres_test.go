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

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/configdb"
	"github.com/European-XFEL/Karabo-sub014/pkg/configdb/postgres"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/timestamp"
	"github.com/jackc/pgx/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const table = "public.karabo_configurations_test"

var _ = Describe("Store", func() {

	var logger *zap.Logger
	BeforeEach(func() {
		z := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(GinkgoWriter),
			zapcore.DebugLevel)
		logger = zap.New(z, zap.AddCaller())
	})

	// Reset the table and create a fresh store for each test
	var store configdb.Store
	var connString string
	BeforeEach(func(ctx context.Context) {

		ctx = log.NewContext(ctx, logger)

		if testing.Short() {
			Skip("Skipping due to -short")
		}

		if c := os.Getenv("KARABO_POSTGRESQL_CONN"); c != "" {
			connString = c
		} else {
			Skip("Skipping due to undefined KARABO_POSTGRESQL_CONN env variable")
		}

		if c, err := pgx.Connect(ctx, connString); err == nil {
			_, err = c.Exec(ctx, "DROP TABLE IF EXISTS "+table)
			Expect(err).ToNot(HaveOccurred())
			Expect(c.Close(ctx)).To(Succeed())
		} else {
			logger.Error("failed to connect to database", zap.Error(err))
			Fail("unable to connect to database")
		}

		var err error
		store, err = postgres.New(ctx, postgres.ConnectionConfig{
			ConnectionString: connString,
			Table:            table,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func(ctx context.Context) {
		if store != nil {
			Expect(store.Close(ctx)).To(Succeed())
			store = nil
		}
	})

	It("reuses an existing table", func(ctx context.Context) {
		again, err := postgres.New(log.NewContext(ctx, logger), postgres.ConnectionConfig{
			ConnectionString: connString,
			Table:            table,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Close(ctx)).To(Succeed())
	})

	It("saves, lists and deletes configurations", func(ctx context.Context) {
		saved := timestamp.FromTime(time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC), 0)
		for _, name := range []string{"slow", "fast"} {
			Expect(store.Save(ctx, &configdb.Record{
				DeviceID:    "motor/1",
				Name:        name,
				Description: "speed preset",
				Saved:       saved,
				Config:      hash.MustBuild("speed", 1.5, "axis.name", name),
			})).To(Succeed())
		}

		By("reading one back")
		rec, err := store.Get(ctx, "motor/1", "fast")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Description).To(Equal("speed preset"))
		Expect(rec.Saved).To(Equal(saved))
		Expect(rec.Config.Equal(hash.MustBuild("speed", 1.5, "axis.name", "fast"))).To(BeTrue())

		By("listing in name order")
		infos, err := store.List(ctx, "motor/1")
		Expect(err).NotTo(HaveOccurred())
		Expect(infos).To(HaveLen(2))
		Expect(infos[0].Name).To(Equal("fast"))
		Expect(infos[1].Name).To(Equal("slow"))

		By("deleting")
		Expect(store.Delete(ctx, "motor/1", "fast")).To(Succeed())
		_, err = store.Get(ctx, "motor/1", "fast")
		Expect(err).To(MatchError(configdb.ErrNotFound))
		Expect(store.Delete(ctx, "motor/1", "fast")).To(MatchError(configdb.ErrNotFound))
	})
})

func TestPostgreSQL(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	RegisterFailHandler(Fail)
	cfg, rep := GinkgoConfiguration()
	if d, ok := t.Deadline(); ok {
		cfg.Timeout = d.Sub(time.Now())
	}
	RunSpecs(t, "PostgreSQL", cfg, rep)
}
