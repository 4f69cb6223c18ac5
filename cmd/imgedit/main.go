package main

import (
	"github.com/szxp/imgedit"
	"github.com/szxp/imgedit/imagemagick"

	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
)

// version will be set while building
var version string

// buildTime will be set while building
var buildTime string

const (
	envHTTPAddr = "IMGEDIT_HTTP_ADDR"
	envLogLevel = "IMGEDIT_LOG_LEVEL"
)

func main() {
	configPath := flag.String("config", "", "path of the TOML config file")
	flag.Parse()

	conf := imgedit.DefaultFileConfig()
	var confErr error
	if *configPath != "" {
		conf, confErr = imgedit.LoadFileConfig(*configPath)
	}
	conf.HTTPAddr = getenv(envHTTPAddr, conf.HTTPAddr)
	conf.LogLevel = getenv(envLogLevel, conf.LogLevel)
	if confErr == nil {
		confErr = conf.Validate()
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Output:          os.Stdout,
		Level:           hclog.LevelFromString(conf.LogLevel),
		IncludeLocation: true,
	}).With("appVersion", version)

	logger.Info("Build info", "time", buildTime)
	if confErr != nil {
		logger.Error("Invalid config. Exit now", "path", *configPath, "err", confErr)
		os.Exit(1)
	}

	err := initialize(logger, conf)
	if err != nil {
		logger.Error("Failed to initialize. Exit now", "err", err)
		os.Exit(1)
	}
	logger.Info("Exit normally")
}

func initialize(logger hclog.Logger, conf imgedit.FileConfig) error {
	resizer, err := newResizer(logger, conf)
	if err != nil {
		return err
	}

	handler, err := imgedit.NewServer(imgedit.ServerConfig{
		SourceDir:    conf.SourceDir,
		ThumbnailDir: conf.ThumbnailDir,
		AllowedExts:  conf.AllowedExts,
		MaxDimension: uint(conf.MaxDimension),
		Resizer:      resizer,
		Logger:       logger.Named("HTTP server"),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    conf.HTTPAddr,
		Handler: handler,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Signal received", "sig", sig)

		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("HTTP server Shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	logger.Info("Listen", "addr", conf.HTTPAddr, "backend", conf.Backend)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	<-idleConnsClosed
	return nil
}

func newResizer(logger hclog.Logger, conf imgedit.FileConfig) (imgedit.ImageResizer, error) {
	if conf.Backend == "imagemagick" {
		ver, err := imagemagick.Version()
		if err != nil {
			return nil, err
		}
		logger.Info("ImageMagick", "version", strings.SplitN(ver, "\n", 2)[0])
		return &imagemagick.ImageResizer{
			Logger:    logger.Named("imagemagick"),
			Quality:   conf.JPEGQuality,
			MaxPixels: conf.MaxSourcePixels,
		}, nil
	}

	editorConf := conf.EditorConfig()
	editorConf.Logger = logger.Named("editor")
	return &imgedit.NativeResizer{Config: editorConf}, nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}
