package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/MuhamedUsman/postit/internal/bgtask"
	"github.com/MuhamedUsman/postit/internal/config"
	"github.com/MuhamedUsman/postit/internal/mdns"
	"github.com/MuhamedUsman/postit/internal/server"
	"github.com/MuhamedUsman/postit/internal/util"
	"github.com/mdp/qrterminal/v3"
)

func main() {
	cfgPath := flag.String("config", "", "path of the TOML config file (default: user config dir)")
	addr := flag.String("addr", "", "listen address, overrides config")
	saveDir := flag.String("save-dir", "", "directory received images are saved into, overrides config")
	publish := flag.Bool("publish", false, "advertise the collector over mDNS")
	instance := flag.String("instance", "", "mDNS instance name, overrides config")
	showQR := flag.Bool("qr", false, "print the upload URL as a QR code")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	util.ConfigureSlog(os.Stderr, level, *verbose)

	var cfg config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.LoadFile(*cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("Loading config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Collector.Addr = *addr
	}
	if *saveDir != "" {
		cfg.Collector.SaveDir = *saveDir
	}
	if *instance != "" {
		cfg.Collector.Instance = *instance
	}
	cfg.Collector.Publish = cfg.Collector.Publish || *publish

	port, err := listenPort(cfg.Collector.Addr)
	if err != nil {
		slog.Error("Parsing listen address", "addr", cfg.Collector.Addr, "err", err)
		os.Exit(1)
	}

	if *showQR {
		ip, err := mdns.OutboundIP()
		if err != nil {
			slog.Error("Resolving outbound ip", "err", err)
			os.Exit(1)
		}
		u := mdns.ServiceEntry{IP: ip.String(), Port: port, Path: server.UploadPath}.URL()
		qrterminal.GenerateHalfBlock(u, qrterminal.L, os.Stdout)
		fmt.Println(u)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := server.New(cfg.Collector.Addr, cfg.Collector.SaveDir)
	wp := bgtask.NewWorkerPool(ctx)
	wp.Spawn(s.Start)
	if cfg.Collector.Publish {
		wp.Spawn(func(ctx context.Context) error {
			return mdns.Publish(ctx, cfg.Collector.Instance, port, server.UploadPath)
		})
	}
	if err = wp.Wait(); err != nil {
		slog.Error(err.Error())
		stop()
		os.Exit(1)
	}
}

func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}
