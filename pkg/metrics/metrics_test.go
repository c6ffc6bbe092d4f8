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

package metrics_test

import (
	"testing"

	"github.com/European-XFEL/Karabo-sub014/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistererIsNop(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.ForServer(nil).UnknownSlot("x")
		metrics.ForClient(nil).WithLabels(nil).Called()
		metrics.ForCodecs(nil).Encoded("Bin", 10)
		metrics.ForValidator(nil).Validated(2)
	})
}

func TestServerCollector(t *testing.T) {

	// Given
	reg := prometheus.NewRegistry()
	col := metrics.ForServer(reg)

	// When
	req := col.WithLabels(prometheus.Labels{"peer": "gui/1", "slot": "move"})
	req.Called()
	req.Called()
	req.Erred()
	col.UnknownSlot("nope")

	// Then
	assert.Equal(t, 2.0, counterSum(t, reg, "karabo_server_calls"))
	n, err := testutil.GatherAndCount(reg, "karabo_server_unknown_slots", "karabo_server_errors")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCodecAndValidatorCollectors(t *testing.T) {

	// Given
	reg := prometheus.NewRegistry()
	codecs := metrics.ForCodecs(reg)
	validations := metrics.ForValidator(reg)

	// When
	codecs.Encoded("Bin", 100)
	codecs.Decoded("Xml", 1000)
	codecs.Failed("Xml", "decode")
	validations.Validated(0)
	validations.Validated(3)

	// Then
	n, err := testutil.GatherAndCount(reg, "karabo_codec_documents")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3.0, counterSum(t, reg, "karabo_validator_violations"))
	assert.Equal(t, 2.0, counterSum(t, reg, "karabo_validator_validations"))
}

// counterSum adds up every series of the counter called name.
func counterSum(t *testing.T, reg prometheus.Gatherer, name string) float64 {
	mfs, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}
