package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli"

	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/core"
	"github.com/1F47E/go-camreel/internal/logger"
)

var app = cli.NewApp()
var log = logger.Log

var flags = []cli.Flag{
	cli.StringFlag{Name: "config, c", Usage: "YAML config file"},
	cli.StringFlag{Name: "mode, m", Usage: "scheme: b, 4c, bm or auto (decode only)"},
	cli.StringFlag{Name: "out, o", Value: config.PathDecodeDir, Usage: "dir for decoded files"},
	cli.StringFlag{Name: "frames", Value: config.PathFramesDir, Usage: "dir for frame images"},
	cli.StringFlag{Name: "video", Value: config.PathVideoOut, Usage: "encoded video, empty keeps frames only"},
	cli.Float64Flag{Name: "redundancy, r", Value: 1.5, Usage: "fountain symbols per data shard"},
	cli.IntFlag{Name: "fps", Value: 10, Usage: "frame rate of the encoded video"},
	cli.StringFlag{Name: "metrics-addr", Usage: "serve prometheus metrics on this address"},
}

func init() {
	app.Name = "camreel"
	app.Usage = "Move files through a screen and a camera"
	app.UsageText = "camreel [command] [flags] filename"
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:    "encode",
			Aliases: []string{"e"},
			Usage:   "Encode a file into frames",
			Flags:   flags,
			Action: func(c *cli.Context) error {
				filename, err := getFilename(c)
				if err != nil {
					return err
				}
				cr, err := newCore(c)
				if err != nil {
					return err
				}
				out, err := cr.Encode(filename)
				if err != nil {
					return err
				}
				log.Infof("Encoded into %s", out)
				return nil
			},
		},
		{
			Name:    "decode",
			Aliases: []string{"d"},
			Usage:   "Decode a video or a dir of frames",
			Flags:   flags,
			Action: func(c *cli.Context) error {
				filename, err := getFilename(c)
				if err != nil {
					return err
				}
				cr, err := newCore(c)
				if err != nil {
					return err
				}
				done, err := cr.Decode(filename)
				if err != nil {
					return err
				}
				for _, f := range done {
					log.Infof("Decoded %s", f)
				}
				return nil
			},
		},
		{
			Name:    "test",
			Aliases: []string{"t"},
			Usage:   "Run encode+decode and compare files",
			Flags:   flags,
			Action: func(c *cli.Context) error {
				filename, err := getFilename(c)
				if err != nil {
					return err
				}
				cr, err := newCore(c)
				if err != nil {
					return err
				}
				same, err := cr.Compare(filename)
				if err != nil {
					return errors.Wrap(err, "Error comparing video")
				}
				if !same {
					return errors.New("Files are different")
				}
				log.Info("Files are the same")
				return nil
			},
		},
	}
}

func getFilename(c *cli.Context) (string, error) {
	f := c.Args().Get(0)
	if f == "" {
		return "", errors.New("Filename is required")
	}
	return f, nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	if mode := c.String("mode"); mode != "" {
		var err error
		cfg, err = config.ForMode(cfg, mode)
		if err != nil {
			return cfg, err
		}
	}
	return cfg, config.Validate(&cfg)
}

func newCore(c *cli.Context) (*core.Core, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	opts := core.DefaultOptions()
	opts.OutDir = c.String("out")
	opts.FramesDir = c.String("frames")
	opts.Video = c.String("video")
	opts.Redundancy = c.Float64("redundancy")
	opts.FPS = c.Int("fps")

	cr := core.NewCore(ctx, cfg, opts)
	if addr := c.String("metrics-addr"); addr != "" {
		reg := cr.Metrics().Registry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		mux := http.NewServeMux()
		mux.Handle("/metrics", cr.Metrics().Handler())
		go func() {
			log.Debugf("metrics on %s/metrics", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Warnf("metrics server: %v", err)
			}
		}()
	}
	return cr, nil
}

var ctx context.Context

func main() {
	var cancel context.CancelFunc
	ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := app.Run(os.Args)
	if err != nil {
		cancel()
		log.Fatal(err)
	}
}
