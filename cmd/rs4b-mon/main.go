package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/rs4b/pkg/framework"
	"github.com/robotalks/rs4b/pkg/registry/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/rs4b/"
)

func init() {
	if val := os.Getenv("RS4B_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	q.Sub(mqtt.MetaFilter, func(topic string, payload []byte) {
		if len(payload) == 0 {
			glog.Infof("%s: removed", topic)
			return
		}
		e, err := mqtt.ParsePayload(payload)
		if err != nil {
			glog.Warningf("%s: bad entry: %v", topic, err)
			return
		}
		state := "unidentified"
		if e.Identified() {
			state = e.Descriptor.Type
		}
		glog.Infof("%s: %s last seen %s", e.UUID, state, e.LastSeen.Local().Format("15:04:05.000"))
	})

	err = fx.NewRunner().HandleSignals().Go(fx.RunFunc(func(ctx context.Context) error {
		if token := q.Connect(); token.Wait() && token.Error() != nil {
			return token.Error()
		}
		<-ctx.Done()
		return q.Close()
	})).Wait()
	if err != nil {
		glog.Error(err)
	}
}
