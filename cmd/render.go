package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/jasmouth/nimbus/renderer"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/scene/reader"
	"github.com/jasmouth/nimbus/tracer"
	"github.com/jasmouth/nimbus/types"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// RenderScene renders a single frame of a built-in scene or a
// Wavefront OBJ file and writes it out as a PNG.
func RenderScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene argument; run list-scenes for the built-in options")
	}

	opts := renderer.Options{
		FrameW:          uint32(ctx.Int("width")),
		FrameH:          uint32(ctx.Int("height")),
		SamplesPerPixel: uint32(ctx.Int("spp")),
		NumBounces:      uint32(ctx.Int("num-bounces")),
		MinBouncesForRR: uint32(ctx.Int("rr-bounces")),
		Exposure:        float32(ctx.Float64("exposure")),
		TileSize:        uint32(ctx.Int("tile-size")),
		NumWorkers:      ctx.Int("workers"),
		Seed:            uint64(ctx.Uint64("seed")),
	}

	sc, err := loadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	r, err := renderer.NewDefault(sc, opts)
	if err != nil {
		return err
	}

	fb, err := r.Render()
	if err != nil {
		return err
	}

	outFile := ctx.String("out")
	if err = writePNG(fb, opts.Exposure, outFile); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", outFile)

	displayFrameStats(r.Stats())
	return nil
}

// ListScenes prints the built-in scene names.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)
	for _, name := range scene.PresetNames() {
		fmt.Println(name)
	}
	return nil
}

// loadScene resolves a built-in scene by name, or stages the mesh in
// target when it points to a Wavefront OBJ file.
func loadScene(target string) (*scene.Scene, error) {
	if !strings.HasSuffix(target, ".obj") {
		return scene.Preset(target)
	}

	res, err := reader.Open(target)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	mat := &scene.Lambert{Albedo: scene.ConstantTexture{Color: types.XYZ(0.75, 0.75, 0.75)}}
	prims, err := reader.ReadOBJ(res, mat)
	if err != nil {
		return nil, err
	}

	// Stage the mesh on a neutral ground plane under a single light.
	sc := scene.New()
	sc.Background = types.XYZ(0.1, 0.12, 0.16)
	sc.Camera = scene.NewCamera(45)
	sc.Camera.Position = types.XYZ(0, 2, 6)
	sc.Camera.LookAt = types.XYZ(0, 1, 0)

	if err = sc.Add(prims...); err != nil {
		return nil, err
	}
	err = sc.Add(
		&scene.Sphere{
			Center: types.XYZ(0, -1000, 0),
			Radius: 1000,
			Mat:    &scene.Lambert{Albedo: scene.ConstantTexture{Color: types.XYZ(0.4, 0.4, 0.4)}},
		},
		&scene.Sphere{
			Center: types.XYZ(4, 8, 4),
			Radius: 2,
			Mat:    &scene.DiffuseLight{Emission: scene.ConstantTexture{Color: types.XYZ(15, 15, 14)}},
		},
	)
	return sc, err
}

func writePNG(fb *tracer.Framebuffer, exposure float32, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, fb.ToRGBA(exposure))
}

func displayFrameStats(stats tracer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Tiles", "Samples", "Render time"})
	for _, stat := range stats.Workers {
		table.Append([]string{
			fmt.Sprintf("%d", stat.ID),
			fmt.Sprintf("%d", stat.Tiles),
			fmt.Sprintf("%d", stat.Samples),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "TOTAL", stats.RenderTime.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
