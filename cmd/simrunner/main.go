// Command simrunner is the per-simulation worker collaborator of spec §6's
// process/CLI surface: it loads one serialized scenario, runs it for its
// embedded duration, scrubs round-scoped state, and writes a compressed
// output artifact alongside the input.
//
// Grounded on the CLI-flag idiom of the teacher's deleted talek/replica
// main.go (stdlib flag, not a cmd framework) and carlmjohnson/versioninfo
// for --version, as the teacher's own cmd binaries do.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/log"

	"github.com/rollercoaster-sim/loopix/cmd/simrunner/archive"
	"github.com/rollercoaster-sim/loopix/internal/simbuild"
	"github.com/rollercoaster-sim/loopix/internal/snapshot"
)

func main() {
	var inputPath string
	var outputPath string
	var archivePath string
	var showVersion bool

	flag.StringVar(&inputPath, "in", "", "path to a compressed input artifact")
	flag.StringVar(&outputPath, "out", "", "path to write the compressed output artifact (default: <in> with .out.cbor.gz)")
	flag.StringVar(&archivePath, "archive", "", "optional bbolt archive file to record this run's metadata")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(versioninfo.Short())
		return
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "simrunner"})

	if inputPath == "" {
		logger.Fatal("missing required -in artifact path")
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, ".cbor.gz") + ".out.cbor.gz"
	}

	if err := run(inputPath, outputPath, archivePath, logger); err != nil {
		logger.Fatal("run failed", "err", err)
	}
}

func run(inputPath, outputPath, archivePath string, logger *log.Logger) error {
	in, err := snapshot.LoadInput(inputPath)
	if err != nil {
		return err
	}
	in.Params.Logger = logger

	result, err := simbuild.Build(in.Params)
	if err != nil {
		return err
	}

	var recorder *archive.Recorder
	if archivePath != "" {
		recorder, err = archive.Open(archivePath)
		if err != nil {
			return err
		}
		defer recorder.Close()
		if err := recorder.RecordStart(inputPath, in.Params); err != nil {
			return err
		}
	}

	result.Sim.Run(in.RunDurationMS)
	result.Sim.Clean()

	out := snapshot.BuildOutputArtifact(result.Sim.Now(), result.Output)
	if err := snapshot.SaveOutput(outputPath, out); err != nil {
		return err
	}

	if recorder != nil {
		if err := recorder.RecordFinish(inputPath, outputPath); err != nil {
			return err
		}
	}

	logger.Info("run complete", "sim_time_ms", out.SimTimeMS, "already_seen", out.AlreadySeen, "out", outputPath)
	return nil
}
