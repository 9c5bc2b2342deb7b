// Package snapshot implements the external interfaces of spec §6: a
// compressed, CBOR-encoded input artifact (a fully-specified scenario plus
// its RNG seed and target run time) and a compressed output artifact
// (the post-run delay/duplicate summary downstream converters consume).
//
// Grounded on core/pki's descriptor.go CBOR (de)serialization idiom and,
// for compression, original_source's own use of Python's stdlib gzip
// module — there is no third-party gzip implementation anywhere in the
// example pack worth preferring over compress/gzip (see DESIGN.md).
package snapshot

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/rollercoaster-sim/loopix/internal/output"
	"github.com/rollercoaster-sim/loopix/internal/simbuild"
	rcerrors "github.com/rollercoaster-sim/loopix/errors"
)

// InputArtifact is the serializable description of a fully-constructed
// simulation: the scenario Params a simbuild.Build call will deterministically
// reconstruct, plus the duration to run it for. Determinism from
// (seed, Params, delta) stands in for the original's pickled object graph
// (spec §6's "rehydrating all entity references"): rather than serialize the
// graph itself, this format serializes the deterministic recipe that builds
// an identical one.
type InputArtifact struct {
	Params        simbuild.Params `cbor:"params"`
	RunDurationMS int64           `cbor:"run_duration_ms"`
}

// OutputArtifact is the compressed, flattened summary a downstream
// converter extracts from a completed run (spec §6).
type OutputArtifact struct {
	SimTimeMS int64 `cbor:"sim_time_ms"`

	E2ET []int32 `cbor:"e2e_entries_t"`
	E2ED []int32 `cbor:"e2e_entries_d"`

	E2EOnlineT []int32 `cbor:"e2e_entries_online_t"`
	E2EOnlineD []int32 `cbor:"e2e_entries_online_d"`

	AlreadySeen int `cbor:"already_seen"`
}

// BuildOutputArtifact flattens out's per-application maps into the parallel
// arrays spec §6 names, iterating applications in a stable (sorted) order
// so the artifact is reproducible given the same Output contents.
func BuildOutputArtifact(simTimeMS int64, out *output.Output) *OutputArtifact {
	a := &OutputArtifact{SimTimeMS: simTimeMS, AlreadySeen: out.TotalAlreadySeen()}

	apps := make([]string, 0, len(out.E2E))
	for app := range out.E2E {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	for _, app := range apps {
		for _, e := range out.E2E[app] {
			a.E2ET = append(a.E2ET, int32(e.TimeMS))
			a.E2ED = append(a.E2ED, int32(e.DelayMS))
		}
		for _, e := range out.E2EOnline[app] {
			a.E2EOnlineT = append(a.E2EOnlineT, int32(e.TimeMS))
			a.E2EOnlineD = append(a.E2EOnlineD, int32(e.DelayMS))
		}
	}
	return a
}

// SaveInput gzip-compresses the CBOR encoding of in to path.
func SaveInput(path string, in *InputArtifact) error {
	return save(path, in)
}

// LoadInput decompresses and CBOR-decodes an input artifact from path.
func LoadInput(path string) (*InputArtifact, error) {
	in := &InputArtifact{}
	if err := load(path, in); err != nil {
		return nil, err
	}
	return in, nil
}

// SaveOutput gzip-compresses the CBOR encoding of out to path.
func SaveOutput(path string, out *OutputArtifact) error {
	return save(path, out)
}

// LoadOutput decompresses and CBOR-decodes an output artifact from path.
func LoadOutput(path string) (*OutputArtifact, error) {
	out := &OutputArtifact{}
	if err := load(path, out); err != nil {
		return nil, err
	}
	return out, nil
}

func save(path string, v interface{}) error {
	raw, err := cbor.Marshal(v)
	if err != nil {
		return rcerrors.NewConfigError("encoding artifact: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return rcerrors.NewConfigError("creating artifact file %q: %w", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(raw); err != nil {
		return rcerrors.NewConfigError("writing compressed artifact %q: %w", path, err)
	}
	return gz.Close()
}

func load(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return rcerrors.NewConfigError("opening artifact file %q: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return rcerrors.NewConfigError("decompressing artifact %q: %w", path, err)
	}
	defer gz.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, gz); err != nil {
		return rcerrors.NewConfigError("reading artifact %q: %w", path, err)
	}

	if err := cbor.Unmarshal(buf.Bytes(), v); err != nil {
		return rcerrors.NewConfigError("decoding artifact %q: %w", path, err)
	}
	return nil
}
