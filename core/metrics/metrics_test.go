package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct{ last time.Time }

func (fakeSource) ChainLength() uint64       { return 12 }
func (fakeSource) MempoolSize() int          { return 3 }
func (fakeSource) PeerCount() int            { return 1 }
func (fakeSource) TierLevel() int            { return 1 }
func (fakeSource) ConsensusLabel() string    { return "advanced" }
func (f fakeSource) LastBlockTime() time.Time { return f.last }
func (fakeSource) StartedAt() time.Time      { return time.Now().Add(-time.Minute) }

func TestCollect(t *testing.T) {
	last := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m := Collect(fakeSource{last: last}, t.TempDir())
	assert.Equal(t, uint64(12), m.ChainLength)
	assert.Equal(t, 3, m.MempoolSize)
	assert.Equal(t, "advanced", m.ConsensusLabel)
	assert.Equal(t, "2025-01-02T03:04:05Z", m.LastBlockTime)
	assert.GreaterOrEqual(t, m.UptimeSeconds, int64(59))
	assert.Greater(t, m.MemoryMB, 0.0)
}
