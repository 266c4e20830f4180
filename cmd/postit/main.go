package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MuhamedUsman/postit/internal/client"
	"github.com/MuhamedUsman/postit/internal/config"
	"github.com/MuhamedUsman/postit/internal/file"
	"github.com/MuhamedUsman/postit/internal/mdns"
	"github.com/MuhamedUsman/postit/internal/util"
	"github.com/dustin/go-humanize"
)

// noExpectArg as the only positional argument suppresses the Expect header
const noExpectArg = "noexpectheader"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run reads the image and posts it once. The exit code is 0 whatever the outcome
// unless -strict is given, flag parse errors exit with 2.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("postit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: postit [flags] [%s]\n", noExpectArg)
		fs.PrintDefaults()
	}
	cfgPath := fs.String("config", "", "path of the TOML config file, read only (default: user config dir)")
	filePath := fs.String("file", "", "image file to upload, overrides config")
	url := fs.String("url", "", "upload URL, overrides config")
	instance := fs.String("instance", "", "resolve the upload URL from this collector's mDNS entry")
	strict := fs.Bool("strict", false, "exit with 1 when the upload fails")
	verbose := fs.Bool("v", false, "log request details")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	util.ConfigureSlog(stderr, level, false)

	failed := 0
	if *strict {
		failed = 1
	}

	// the harness never writes config, a missing file means defaults
	cfg, err := config.Read(*cfgPath)
	if err != nil {
		slog.Error("Loading config", "err", err)
		return failed
	}
	if *filePath != "" {
		cfg.Upload.File = *filePath
	}
	if *url != "" {
		cfg.Upload.URL = *url
	}
	if *instance != "" {
		lookupCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		entry, err := mdns.Lookup(lookupCtx, *instance)
		cancel()
		if err != nil {
			slog.Error("Resolving collector", "instance", *instance, "err", err)
			return failed
		}
		cfg.Upload.URL = entry.URL()
	}

	// any other argument is ignored
	noExpect := fs.NArg() == 1 && fs.Arg(0) == noExpectArg

	img, err := file.Load(cfg.Upload.File)
	if err != nil {
		slog.Error("Reading image", "err", err)
		return failed
	}
	slog.Debug("Image loaded", "file", cfg.Upload.File, "size", humanize.Bytes(uint64(img.Size)))

	res, err := client.New().Upload(ctx, client.Upload{
		URL:        cfg.Upload.URL,
		Filename:   cfg.Upload.Filename,
		ImageLabel: cfg.Upload.ImageLabel,
		Image:      img,
		NoExpect:   noExpect,
	})
	if err != nil {
		slog.Error("Upload failed", "err", err)
		return failed
	}
	slog.Debug("Upload completed", "status", res.Status, "sent", humanize.Bytes(uint64(res.Sent)))
	// the response body goes to stdout as curl does
	if _, err = io.WriteString(stdout, res.Body); err != nil {
		slog.Error("Writing response", "err", err)
	}
	return 0
}
