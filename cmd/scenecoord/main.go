// Package main provides the scenecoord CLI.
//
// Usage:
//
//	scenecoord init    -mean x,y,z [-seed N] -out model.born
//	scenecoord predict -model model.born -image frame.png [-height 480] -out prediction.born [-heatmap guidance.png]
//	scenecoord inspect -model model.born
//	scenecoord version
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/born-ml/scenecoord/internal/backend/cpu"
	"github.com/born-ml/scenecoord/internal/imageio"
	"github.com/born-ml/scenecoord/internal/nn"
	"github.com/born-ml/scenecoord/internal/scr"
	"github.com/born-ml/scenecoord/internal/serialization"
	"github.com/born-ml/scenecoord/internal/tensor"
)

const version = "v0.1.0-dev"

// Tensor names in prediction files.
const (
	predCoordinates = "scene_coordinates"
	predGuidance    = "log_guidance"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "init":
		err = runInit(args[1:], stdout, stderr)
	case "predict":
		err = runPredict(args[1:], stdout, stderr)
	case "inspect":
		err = runInspect(args[1:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "scenecoord %s\n", version)
	case "help", "-h", "-help", "--help":
		usage(stdout)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage error")

func usage(w io.Writer) {
	_, _ = fmt.Fprint(w, `scenecoord - scene coordinate regression network

Commands:
  init      Create a network with fresh weights and save it
  predict   Run the network on an image
  inspect   List the tensors and metadata of a checkpoint
  version   Show version

Run "scenecoord <command> -h" for command flags.
`)
}

// newFlagSet returns a FlagSet that reports errors instead of exiting and
// a -v flag for debug logging.
func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "enable debug logging")
	return fs, verbose
}

func newLogger(stderr io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

func required(fs *flag.FlagSet, names ...string) error {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, name := range names {
		if !set[name] {
			_, _ = fmt.Fprintf(fs.Output(), "missing required flag -%s\n", name)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func runInit(args []string, stdout, stderr io.Writer) error {
	fs, verbose := newFlagSet("init", stderr)
	meanFlag := fs.String("mean", "", "mean scene coordinate as x,y,z")
	seed := fs.Int64("seed", 0, "initialization seed (0 picks one from the clock)")
	out := fs.String("out", "", "output checkpoint (.born or .safetensors)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "mean", "out"); err != nil {
		return err
	}
	logger := newLogger(stderr, *verbose)

	mean, err := scr.ParseMean(*meanFlag)
	if err != nil {
		return err
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	start := time.Now()
	net, err := scr.New(mean, cpu.New(), scr.WithSeed(*seed))
	if err != nil {
		return err
	}
	logger.Debug("initialized network", "seed", *seed, "parameters", net.NumParameters(), "elapsed", time.Since(start))

	if err := net.Save(*out); err != nil {
		return err
	}
	logger.Info("saved network", "path", *out, "mean", mean)
	_, _ = fmt.Fprintln(stdout, net)
	return nil
}

func runPredict(args []string, stdout, stderr io.Writer) error {
	fs, verbose := newFlagSet("predict", stderr)
	modelPath := fs.String("model", "", "network checkpoint (.born or .safetensors)")
	imagePath := fs.String("image", "", "input image (PNG, JPEG, GIF or WebP)")
	height := fs.Int("height", 480, "resize the image to this height before inference")
	normName := fs.String("norm", "imagenet", "input normalization: imagenet or unit")
	out := fs.String("out", "", "output .born file for the predicted tensors")
	heatmap := fs.String("heatmap", "", "optional PNG rendering of the guidance map")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "model", "image", "out"); err != nil {
		return err
	}
	logger := newLogger(stderr, *verbose)

	var norm imageio.Normalization
	switch strings.ToLower(*normName) {
	case "imagenet":
		norm = imageio.ImageNet
	case "unit":
		norm = imageio.Unit
	default:
		_, _ = fmt.Fprintf(stderr, "unknown normalization %q\n", *normName)
		return errUsage
	}

	backend := cpu.New()
	net, err := scr.Load(*modelPath, backend)
	if err != nil {
		return err
	}
	logger.Debug("loaded network", "path", *modelPath, "mean", net.Mean())

	img, err := imageio.DecodeFile(*imagePath)
	if err != nil {
		return err
	}
	resized, err := imageio.Resize(img, *height)
	if err != nil {
		return err
	}
	input, err := imageio.ToTensor(resized, norm, backend)
	if err != nil {
		return err
	}
	logger.Debug("prepared input", "original", img.Bounds().Size(), "shape", input.Shape())

	start := time.Now()
	coords, logGuidance, err := net.Forward(input)
	if err != nil {
		return err
	}
	logger.Info("forward pass", "input", input.Shape(), "output", coords.Shape(), "elapsed", time.Since(start))

	header := serialization.Header{
		ModelType: "SceneCoordinatePrediction",
		Metadata: map[string]string{
			"image":            *imagePath,
			"model":            *modelPath,
			"input_height":     strconv.Itoa(resized.Bounds().Dy()),
			"input_width":      strconv.Itoa(resized.Bounds().Dx()),
			"output_subsample": strconv.Itoa(scr.OutputSubsample),
		},
	}
	prediction := map[string]*tensor.RawTensor{
		predCoordinates: coords.Raw(),
		predGuidance:    logGuidance.Raw(),
	}
	if err := serialization.WriteFile(*out, prediction, header); err != nil {
		return err
	}
	logger.Info("saved prediction", "path", *out)

	if *heatmap != "" {
		gray, err := imageio.GuidanceHeatmap(logGuidance, 0)
		if err != nil {
			return err
		}
		if err := imageio.EncodePNGFile(*heatmap, gray); err != nil {
			return err
		}
		logger.Info("saved heatmap", "path", *heatmap)
	}

	_, _ = fmt.Fprintf(stdout, "%s %v\n%s %v\n", predCoordinates, coords.Shape(), predGuidance, logGuidance.Shape())
	return nil
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs, verbose := newFlagSet("inspect", stderr)
	modelPath := fs.String("model", "", "checkpoint to inspect (.born or .safetensors)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "model"); err != nil {
		return err
	}
	logger := newLogger(stderr, *verbose)

	ckpt, err := nn.LoadCheckpoint(*modelPath)
	if err != nil {
		return err
	}
	logger.Debug("loaded checkpoint", "path", *modelPath, "format", ckpt.Format, "tensors", len(ckpt.StateDict))

	_, _ = fmt.Fprintf(stdout, "format: %s\n", ckpt.Format)
	if ckpt.ModelType != "" {
		_, _ = fmt.Fprintf(stdout, "model_type: %s\n", ckpt.ModelType)
	}
	if !ckpt.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(stdout, "created_at: %s\n", ckpt.CreatedAt.Format(time.RFC3339))
	}
	for _, key := range sortedKeys(ckpt.Metadata) {
		_, _ = fmt.Fprintf(stdout, "metadata.%s: %s\n", key, ckpt.Metadata[key])
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tDTYPE\tSHAPE\tELEMENTS")
	total := 0
	for _, name := range sortedKeys(ckpt.StateDict) {
		raw := ckpt.StateDict[name]
		total += raw.NumElements()
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%v\t%d\n", name, raw.DType(), raw.Shape(), raw.NumElements())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "tensors: %d, elements: %d\n", len(ckpt.StateDict), total)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
