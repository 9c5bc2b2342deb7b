package output

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestLogE2EDelayRecordsOnlineSublist(t *testing.T) {
	o := New(prometheus.NewRegistry())
	o.LogE2EDelay("App_00", 1000, 200, true)
	o.LogE2EDelay("App_00", 2000, 50, false)

	require.Len(t, o.E2E["App_00"], 2)
	require.Len(t, o.E2EOnline["App_00"], 1)
	require.Equal(t, Entry{TimeMS: 1000, DelayMS: 200}, o.E2EOnline["App_00"][0])
}

func TestLogAlreadySeenIncrementsPerApp(t *testing.T) {
	o := New(prometheus.NewRegistry())
	o.LogAlreadySeen("App_00")
	o.LogAlreadySeen("App_00")
	o.LogAlreadySeen("App_01")

	require.Equal(t, 2, o.AlreadySeen["App_00"])
	require.Equal(t, 1, o.AlreadySeen["App_01"])
	require.Equal(t, 3, o.TotalAlreadySeen())
}

func TestNewWithNilRegistererDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() { New(nil) })
}
