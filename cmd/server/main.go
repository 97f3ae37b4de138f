// Command server runs the image filter HTTP service.
package main

import (
	"github.com/ds124wfegd/imagefilter/config"
	"github.com/ds124wfegd/imagefilter/internal/appServer"
	"github.com/sirupsen/logrus"
)

func main() {
	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	appServer.NewServer(cfg)
}
