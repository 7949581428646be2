// Command tilestreams runs a multi-input selection graph on the simulated
// device and verifies its output.
//
// The selected input can be loaded from a Kafka topic and the output
// published to one. Generated routines can be published to a directory or an
// S3 compatible bucket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/birdayz/tilestreams"
	"github.com/birdayz/tilestreams/kartifact"
	"github.com/birdayz/tilestreams/kartifact/s3"
	"github.com/birdayz/tilestreams/kcache/pebble"
	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kdevice/sim"
	"github.com/birdayz/tilestreams/kio/kafka"
	"github.com/birdayz/tilestreams/kserde"
	tslog "github.com/birdayz/tilestreams/pkg/log"
)

type config struct {
	device       int
	seed         int64
	cores        int
	count        int
	fifoCapacity int
	dot          string
	cacheDir     string
	artifactDir  string
	verbose      bool

	brokers     []string
	sourceTopic string
	sinkTopic   string

	objectStore s3.Config
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	log := tslog.New(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, log, cfg); err != nil {
		log.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses args into a config. Without --seed the seed is taken
// from the clock.
func parseFlags(fs *flag.FlagSet, args []string) (config, error) {
	var (
		cfg     config
		brokers string
	)
	fs.IntVar(&cfg.device, "device", 0, "id of the device to run on")
	fs.IntVar(&cfg.device, "d", 0, "shorthand for --device")
	fs.Int64Var(&cfg.seed, "seed", 0, "seed of the random input data (default: current time)")
	fs.Int64Var(&cfg.seed, "s", 0, "shorthand for --seed")
	fs.IntVar(&cfg.cores, "cores", 1, "number of cores to spread the work over")
	fs.IntVar(&cfg.count, "count", 4096, "number of elements per stream")
	fs.IntVar(&cfg.fifoCapacity, "fifo-capacity", kcodegen.DefaultFIFOCapacity, "capacity of every FIFO in tiles")
	fs.StringVar(&cfg.dot, "dot", "", "write the graph in DOT format to this path")
	fs.StringVar(&cfg.cacheDir, "cache-dir", "", "directory of the compiled program cache")
	fs.StringVar(&cfg.artifactDir, "artifact-dir", "", "directory to publish the generated routines to")
	fs.BoolVar(&cfg.verbose, "verbose", false, "enable debug logging")

	fs.StringVar(&brokers, "brokers", "localhost:9092", "comma separated Kafka seed brokers")
	fs.StringVar(&cfg.sourceTopic, "source-topic", "", "load the selected input from this Kafka topic")
	fs.StringVar(&cfg.sinkTopic, "sink-topic", "", "publish the output to this Kafka topic")

	fs.StringVar(&cfg.objectStore.Endpoint, "s3-endpoint", "", "S3 endpoint to publish the generated routines to")
	fs.StringVar(&cfg.objectStore.Bucket, "s3-bucket", "tilestreams", "S3 bucket of the generated routines")
	fs.StringVar(&cfg.objectStore.Prefix, "s3-prefix", "", "object name prefix in the S3 bucket")
	fs.StringVar(&cfg.objectStore.AccessKey, "s3-access-key", os.Getenv("AWS_ACCESS_KEY_ID"), "S3 access key")
	fs.StringVar(&cfg.objectStore.SecretKey, "s3-secret-key", os.Getenv("AWS_SECRET_ACCESS_KEY"), "S3 secret key")
	fs.BoolVar(&cfg.objectStore.Secure, "s3-secure", true, "use TLS for S3")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	seeded := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" || f.Name == "s" {
			seeded = true
		}
	})
	if !seeded {
		cfg.seed = time.Now().UnixNano()
	}

	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.brokers = append(cfg.brokers, b)
		}
	}
	return cfg, nil
}

func run(ctx context.Context, log *slog.Logger, cfg config) error {
	// The simulator is the only device.
	if cfg.device != 0 {
		return fmt.Errorf("device %d not found", cfg.device)
	}
	device, err := sim.New(sim.WithLog(log.WithGroup("device")))
	if err != nil {
		return err
	}
	defer device.Close()

	opts := []tilestreams.Option{
		tilestreams.WithLog(log),
		tilestreams.WithDevice(device),
		tilestreams.WithCores(cfg.cores),
		tilestreams.WithFIFOCapacity(cfg.fifoCapacity),
	}
	if cfg.cacheDir != "" {
		cache, err := pebble.Open(cfg.cacheDir)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts = append(opts, tilestreams.WithProgramCache(cache))
	}

	m, err := tilestreams.New(opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	var client *kafka.Client
	if cfg.sourceTopic != "" || cfg.sinkTopic != "" {
		if client, err = kafka.NewClient(log.WithGroup("kafka"), cfg.brokers); err != nil {
			return err
		}
		defer client.Close()
	}

	format := tilestreams.NewFormat(tilestreams.BFloat16)
	selected := make([]float32, cfg.count)
	if cfg.sourceTopic != "" {
		if err := client.Load(ctx, cfg.sourceTopic, format, selected, cfg.count); err != nil {
			return err
		}
		log.Info("Loaded input", "topic", cfg.sourceTopic, "elements", cfg.count)
	} else {
		log.Info("Generating input", "seed", cfg.seed)
		selected = kserde.RandomVector(rand.New(rand.NewSource(cfg.seed)), cfg.count, -4, 4)
	}
	inputs := [][]float32{
		kserde.ConstantVector(cfg.count, 1),
		kserde.ConstantVector(cfg.count, 2),
		selected,
	}
	output := make([]float32, cfg.count)

	if err := buildSelection(m, format, inputs, output); err != nil {
		return err
	}

	if cfg.dot != "" {
		if err := m.ExportDOT(cfg.dot); err != nil {
			return err
		}
		log.Info("Exported graph", "path", cfg.dot)
	}

	if err := m.CheckConnections(); err != nil {
		return err
	}
	if _, err := m.GenerateDeviceKernels(); err != nil {
		return err
	}

	if err := publishArtifacts(ctx, m, cfg); err != nil {
		return err
	}

	if err := m.Execute(ctx); err != nil {
		return err
	}

	for i, v := range output {
		want := kserde.Round(format.DataFormat, inputs[2][i])
		if v != want {
			return fmt.Errorf("output mismatch at %d: got %v, want %v", i, v, want)
		}
	}
	log.Info("Output verified", "elements", len(output))

	if cfg.sinkTopic != "" {
		if err := client.EnsureTopic(ctx, cfg.sinkTopic, 1); err != nil {
			return err
		}
		if err := client.Publish(ctx, cfg.sinkTopic, format, output, cfg.count); err != nil {
			return err
		}
		log.Info("Published output", "topic", cfg.sinkTopic)
	}
	return nil
}

func publishArtifacts(ctx context.Context, m *tilestreams.Map, cfg config) error {
	var stores []kartifact.Store
	if cfg.artifactDir != "" {
		store, err := kartifact.NewDirStore(cfg.artifactDir)
		if err != nil {
			return err
		}
		stores = append(stores, store)
	}
	if cfg.objectStore.Endpoint != "" {
		store, err := s3.New(ctx, cfg.objectStore)
		if err != nil {
			return err
		}
		stores = append(stores, store)
	}

	for _, store := range stores {
		if err := m.PublishArtifacts(ctx, store); err != nil {
			return err
		}
	}
	return nil
}

// buildSelection connects three sources to a kernel forwarding its third
// input to the sink.
func buildSelection(m *tilestreams.Map, format tilestreams.Format, inputs [][]float32, output []float32) error {
	k := tilestreams.NewKernel("select")
	for i := range inputs {
		if err := k.AddInputPort(fmt.Sprintf("in%d", i), format); err != nil {
			return err
		}
	}
	if err := k.AddOutputPort("out0", format); err != nil {
		return err
	}
	k.SetComputeKernel("out0 = in2;")
	kernel, err := m.AddKernel(k)
	if err != nil {
		return err
	}

	for i, data := range inputs {
		s, err := tilestreams.NewStream(fmt.Sprintf("source%d", i), data, len(data), format)
		if err != nil {
			return err
		}
		id, err := m.AddStream(s)
		if err != nil {
			return err
		}
		if err := m.ConnectStream(id, kernel, fmt.Sprintf("in%d", i)); err != nil {
			return err
		}
	}

	s, err := tilestreams.NewStream("sink", output, len(output), format)
	if err != nil {
		return err
	}
	sink, err := m.AddStream(s)
	if err != nil {
		return err
	}
	return m.ConnectSink(kernel, "out0", sink)
}
