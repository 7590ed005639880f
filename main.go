package main

import (
	"os"

	"github.com/jasmouth/nimbus/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "nimbus"
	app.Usage = "render scenes using monte carlo path tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a single frame of a scene",
			Description: `
Render a built-in scene (see list-scenes) or a Wavefront OBJ file and
write the tone-mapped result to a PNG file.`,
			ArgsUsage: "scene-name | mesh.obj",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 64,
					Usage: "samples per pixel",
				},
				cli.IntFlag{
					Name:  "num-bounces",
					Value: 8,
					Usage: "max indirect bounces per path",
				},
				cli.IntFlag{
					Name:  "rr-bounces",
					Value: 3,
					Usage: "bounces before russian roulette kicks in",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: 1.2,
					Usage: "camera exposure for tone-mapping",
				},
				cli.IntFlag{
					Name:  "workers",
					Value: 0,
					Usage: "render worker count; 0 uses all cpus",
				},
				cli.IntFlag{
					Name:  "tile-size",
					Value: 32,
					Usage: "edge length of render work tiles",
				},
				cli.Uint64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "base seed for all sample sequences",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: cmd.RenderScene,
		},
		{
			Name:   "list-scenes",
			Usage:  "list the built-in scenes",
			Action: cmd.ListScenes,
		},
	}

	app.Run(os.Args)
}
