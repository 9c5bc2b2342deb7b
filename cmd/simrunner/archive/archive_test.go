package archive

import (
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/stretchr/testify/require"

	"github.com/rollercoaster-sim/loopix/internal/simbuild"
)

func TestRecordStartThenFinishUpdatesSameRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	params := simbuild.Params{Seed: 42, Strategy: "sequential"}
	require.NoError(t, r.RecordStart("scenario.cbor.gz", params))

	runID, ok := r.runByInput["scenario.cbor.gz"]
	require.True(t, ok)

	require.NoError(t, r.RecordFinish("scenario.cbor.gz", "result.cbor.gz"))

	var rec record
	require.NoError(t, r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(runsBucket).Get([]byte(runID))
		require.NotNil(t, raw)
		return cbor.Unmarshal(raw, &rec)
	}))

	require.Equal(t, runID, rec.RunID)
	require.Equal(t, "scenario.cbor.gz", rec.InputPath)
	require.Equal(t, "result.cbor.gz", rec.OutputPath)
	require.Equal(t, int64(42), rec.Params.Seed)
	require.False(t, rec.FinishedAt.IsZero())
}

func TestRecordFinishUnknownInputReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	err = r.RecordFinish("never-started.cbor.gz", "out.cbor.gz")
	require.Error(t, err)
}

func TestOpenCreatesRunsBucket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.db.View(func(tx *bolt.Tx) error {
		require.NotNil(t, tx.Bucket(runsBucket))
		return nil
	}))
}

func TestReopenExistingArchivePreservesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	r1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, r1.RecordStart("scenario.cbor.gz", simbuild.Params{Seed: 1}))
	require.NoError(t, r1.Close())

	r2, err := Open(path)
	require.NoError(t, err)
	defer r2.Close()

	var count int
	require.NoError(t, r2.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, v []byte) error {
			count++
			return nil
		})
	}))
	require.Equal(t, 1, count)
}
