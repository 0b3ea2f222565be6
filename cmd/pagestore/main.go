package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/stratosdb/pagestore/client"
	"github.com/stratosdb/pagestore/common"
	"github.com/stratosdb/pagestore/conf"
	"github.com/stratosdb/pagestore/devserver"
	log "github.com/stratosdb/pagestore/logger"
)

type arguments struct {
	LogConfig log.Config `embed:"" prefix:"log-"`
	Serve     serveCmd   `cmd:"" help:"Run an in-memory development page server."`
	Ping      pingCmd    `cmd:"" help:"Check that a page server is reachable."`
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}

func run() error {
	defer common.PanicHandler()
	cfg := &arguments{}
	parser, err := kong.New(cfg)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		return err
	}
	if err := cfg.LogConfig.Configure(); err != nil {
		return err
	}
	return ctx.Run()
}

type serveCmd struct {
	ListenAddress string `help:"Address the dev page server listens on." default:"127.0.0.1:8080"`
}

func (s *serveCmd) Run() error {
	server := devserver.NewServer(s.ListenAddress)
	if err := server.Start(); err != nil {
		return errors.WithStack(err)
	}
	log.Infof("dev page server listening on %s", server.ListenAddress())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	return server.Stop()
}

type pingCmd struct {
	Address string `help:"Address of the page server to ping." default:"127.0.0.1:8080"`
}

func (p *pingCmd) Run() error {
	cl := client.NewClient(conf.Config{Address: p.Address})
	if err := cl.Start(); err != nil {
		return err
	}
	defer cl.Stop()
	if !cl.IsEnabled() {
		return errors.Errorf("page server %s is not reachable", p.Address)
	}
	log.Infof("page server %s is reachable", p.Address)
	return nil
}
