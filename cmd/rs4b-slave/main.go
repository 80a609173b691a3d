package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/env"
	fx "github.com/robotalks/rs4b/pkg/framework"
	"github.com/robotalks/rs4b/pkg/protocol"
)

var showDescriptor bool

func init() {
	env.SetupSlaveFlags()
	flag.BoolVar(&showDescriptor, "show", showDescriptor, "Print the descriptor reply and exit")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	if showDescriptor {
		printDescriptor(conf)
		return
	}
	e, err := conf.NewSlaveEnv()
	if err != nil {
		glog.Exit(err)
	}
	defer e.Close()
	loop := conf.NewLoop().Add(e)
	if err = fx.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		glog.Error(err)
	}
}

func printDescriptor(conf *env.Config) {
	id, err := conf.DeviceID()
	if err != nil {
		glog.Exit(err)
	}
	desc, err := conf.Descriptor(id)
	if err != nil {
		glog.Exit(err)
	}
	reply, err := protocol.DescriptorReply(desc)
	if err != nil {
		glog.Exit(err)
	}
	fmt.Println(reply)
}
