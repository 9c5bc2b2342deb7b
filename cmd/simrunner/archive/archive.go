// Package archive records simrunner invocations into a local bbolt
// database, keyed by a fresh run UUID per invocation. This is the batch-
// orchestration collaborator spec.md names as out of scope for the core
// (spec §1): a thin, optional bookkeeping layer simrunner itself may use,
// not a core simulator component.
//
// Grounded on core/pki's bbolt-backed descriptor store (cached/db.go-style
// usage of go.etcd.io/bbolt) for the bucket/transaction idiom, and on
// gofrs/uuid for the run identifier.
package archive

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofrs/uuid"
	bolt "go.etcd.io/bbolt"

	rcerrors "github.com/rollercoaster-sim/loopix/errors"
	"github.com/rollercoaster-sim/loopix/internal/simbuild"
)

var runsBucket = []byte("runs")

// record is one run's persisted metadata.
type record struct {
	RunID      string          `cbor:"run_id"`
	InputPath  string          `cbor:"input_path"`
	OutputPath string          `cbor:"output_path,omitempty"`
	Params     simbuild.Params `cbor:"params"`
	StartedAt  time.Time       `cbor:"started_at"`
	FinishedAt time.Time       `cbor:"finished_at,omitzero"`
}

// Recorder wraps a bbolt database used to track simrunner invocations.
type Recorder struct {
	db *bolt.DB
	// runByInput lets RecordFinish find the run UUID a given input path
	// was opened under, without requiring the caller to thread it through.
	runByInput map[string]string
}

// Open opens (creating if necessary) a bbolt archive at path.
func Open(path string) (*Recorder, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, rcerrors.NewConfigError("opening archive %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, rcerrors.NewConfigError("initializing archive %q: %w", path, err)
	}
	return &Recorder{db: db, runByInput: make(map[string]string)}, nil
}

// RecordStart writes a new run record for inputPath, generating a fresh
// run UUID.
func (r *Recorder) RecordStart(inputPath string, params simbuild.Params) error {
	id, err := uuid.NewV4()
	if err != nil {
		return rcerrors.NewConfigError("generating run id: %w", err)
	}
	rec := record{RunID: id.String(), InputPath: inputPath, Params: params, StartedAt: time.Now()}
	r.runByInput[inputPath] = rec.RunID

	raw, err := cbor.Marshal(rec)
	if err != nil {
		return rcerrors.NewConfigError("encoding run record: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(rec.RunID), raw)
	})
}

// RecordFinish updates the run record for inputPath with its output path
// and completion time.
func (r *Recorder) RecordFinish(inputPath, outputPath string) error {
	id, ok := r.runByInput[inputPath]
	if !ok {
		return rcerrors.NewInvariantError("archive: RecordFinish called for unknown input %q", inputPath)
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(runsBucket)
		raw := b.Get([]byte(id))
		if raw == nil {
			return rcerrors.NewInvariantError("archive: run record %q vanished", id)
		}
		var rec record
		if err := cbor.Unmarshal(raw, &rec); err != nil {
			return rcerrors.NewConfigError("decoding run record %q: %w", id, err)
		}
		rec.OutputPath = outputPath
		rec.FinishedAt = time.Now()
		updated, err := cbor.Marshal(rec)
		if err != nil {
			return rcerrors.NewConfigError("encoding run record %q: %w", id, err)
		}
		return b.Put([]byte(id), updated)
	})
}

// Close releases the underlying bbolt database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
