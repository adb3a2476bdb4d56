package serializer

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector/access-audit-serializer/security"
	"github.com/root-sector/access-audit-serializer/types"
)

func TestMetricsRecordSerializations(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry, "audit_test")
	s := New(WithMetrics(m))

	group := types.NewGroupEvent(testBase("g-1"), "group-1", types.EventKindCreate, nil, nil)
	_, err := s.Serialize(group, security.None())
	require.NoError(t, err)
	_, err = s.Serialize(group, security.System())
	require.NoError(t, err)

	badge := newBadgeEvent("b-1", "1")
	_, err = s.Serialize(badge, security.None())
	require.Error(t, err)

	h := s.RegisterSerializer(&countingSerializer{typeName: "audit-badge-event", claim: true})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExtensionsRegistered))

	_, err = s.Serialize(badge, security.None())
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SerializeTotal.WithLabelValues(types.TypeGroupEvent, sourceBuiltin, outcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SerializeTotal.WithLabelValues("audit-badge-event", sourceExtension, outcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SerializeTotal.WithLabelValues(typeUnknown, sourceNone, outcomeUnsupported)))

	name, err := s.TypeName(group)
	require.NoError(t, err)
	assert.Equal(t, types.TypeGroupEvent, name)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TypeNameLookupsTotal.WithLabelValues(sourceBuiltin)))

	h.Release()
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ExtensionsRegistered))
}

func TestUnsupportedEntriesShareOneLabel(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry, "audit_test")
	s := New(WithMetrics(m))

	for _, id := range []string{"b-1", "b-2", "b-3"} {
		_, err := s.Serialize(newBadgeEvent(id, "1"), security.None())
		require.Error(t, err)
	}
	_, err := s.Serialize(&zoneEntry{Base: testBase("z-1")}, security.None())
	require.Error(t, err)

	assert.Equal(t, float64(4), testutil.ToFloat64(m.SerializeTotal.WithLabelValues(typeUnknown, sourceNone, outcomeUnsupported)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SerializeTotal))
}

type zoneEntry struct {
	types.Base
}

func (e *zoneEntry) EntryType() string { return "audit-zone-event" }

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeSerialize("x", sourceBuiltin, outcomeSuccess)
		m.observeTypeName(sourceNone)
		m.setExtensions(3)
	})
}
