package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/cli/sh"
	"github.com/robotalks/rs4b/pkg/env"
	fx "github.com/robotalks/rs4b/pkg/framework"
)

var daemon bool

func init() {
	env.SetupMasterFlags()
	flag.BoolVar(&daemon, "d", daemon, "Run without console, use with -scan")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	e, err := conf.NewMasterEnv()
	if err != nil {
		glog.Exit(err)
	}
	defer e.Close()
	loop := conf.NewLoop().Add(e)

	if daemon {
		err = fx.NewRunner().HandleSignals().Go(loop).Wait()
	} else {
		err = sh.New(e, loop).Run(flag.Args()...)
	}
	if err != nil {
		glog.Error(err)
	}
}
