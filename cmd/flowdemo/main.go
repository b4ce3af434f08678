// Command flowdemo traces streamlines through a synthetic vortex field,
// tessellates them into round-joint meshes and renders them to a PNG.
package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/flowline"
)

func main() {
	var (
		width       = flag.Int("width", 200, "field width in cells")
		height      = flag.Int("height", 150, "field height in cells")
		scale       = flag.Float64("scale", 4, "pixels per cell")
		lineWidth   = flag.Float64("line-width", 1.5, "line width in pixels")
		supersample = flag.Int("ss", 2, "supersampling factor")
		configPath  = flag.String("config", "", "config file (.toml or .yaml)")
		output      = flag.String("output", "flow.png", "output file")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	flowline.SetLogger(newLogger(*verbose))

	cfg := flowline.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = flowline.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	f := vortexField(*width, *height)

	gen := flowline.NewGenerator(flowline.WithConfig(cfg))
	defer gen.Close()

	ctx := context.Background()
	res, err := gen.Generate(ctx, flowline.Request{Field: f})
	if err != nil {
		log.Fatalf("Failed to generate: %v", err)
	}

	lines := res.Streamlines
	ss := max(*supersample, 1)
	px := *scale * float64(ss)
	paths := make([][]flowline.Point, len(lines))
	for i, line := range lines {
		paths[i] = make([]flowline.Point, len(line))
		for j, p := range line {
			paths[i][j] = flowline.Point{X: p.X * px, Y: p.Y * px}
		}
	}
	meshes, err := gen.TessellateAll(ctx, paths)
	if err != nil {
		log.Fatalf("Failed to tessellate: %v", err)
	}
	buf := flowline.PackMeshesToBuffers(meshes)

	w := int(math.Ceil(float64(*width) * px))
	h := int(math.Ceil(float64(*height) * px))
	img := render(w, h, meshes, meanSpeeds(lines), res.SpeedRange, *lineWidth*float64(ss)/2)

	out := imaging.Resize(img, w/ss, h/ss, imaging.Lanczos)
	if err := imaging.Save(out, *output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	p := message.NewPrinter(language.English)
	p.Printf("%d lines, %d segments, %d mesh vertices, %d triangles\n",
		res.Lines, res.Buffers.Segments, buf.VertexCount(), len(buf.Indices)/3)
	p.Printf("speed range %.3f .. %.3f\n", res.SpeedRange[0], res.SpeedRange[1])
	log.Printf("Saved %s (%dx%d)\n", *output, out.Bounds().Dx(), out.Bounds().Dy())
}

// newLogger logs as text on a terminal and as JSON otherwise.
func newLogger(verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// vortexField is a counter-clockwise vortex on a slow eastward drift, with
// a no-data hole at the centre.
func vortexField(w, h int) *flowline.Field {
	const noData = -9999
	data := make([]float32, w*h*2)
	cx, cy := float64(w)/2, float64(h)/2
	r := math.Min(cx, cy)
	for y := range h {
		for x := range w {
			dx, dy := (float64(x)-cx)/r, (float64(y)-cy)/r
			i := (y*w + x) * 2
			if dx*dx+dy*dy < 0.01 {
				data[i], data[i+1] = noData, noData
				continue
			}
			data[i] = float32(-dy + 0.3)
			data[i+1] = float32(dx)
		}
	}
	f, err := flowline.NewField(w, h, data, noData)
	if err != nil {
		panic(err)
	}
	return f
}

func meanSpeeds(lines [][]flowline.StreamlinePoint) []float64 {
	out := make([]float64, len(lines))
	for i, line := range lines {
		s := 0.0
		for _, p := range line {
			s += p.Speed
		}
		if len(line) > 0 {
			out[i] = s / float64(len(line))
		}
	}
	return out
}

// background is the canvas color.
var background = color.RGBA{R: 12, G: 16, B: 28, A: 255}

func newCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = background.R
		img.Pix[i+1] = background.G
		img.Pix[i+2] = background.B
		img.Pix[i+3] = background.A
	}
	return img
}
