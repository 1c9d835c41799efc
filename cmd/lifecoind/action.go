// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"

	cfg "github.com/lifecoin-project/lifecoind/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func action(ctx *cli.Context) error {
	if arguments := ctx.Args(); len(arguments) > 0 {
		return fmt.Errorf("failed to read command argument: %q", arguments[0])
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	if err := cfg.Load(); err != nil {
		log.WithError(err).Fatal("could not load config")
	}

	config := cfg.Get()

	if config.Logger.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(config.Logger.Level); err == nil {
		logrus.SetLevel(level)
	}

	log.WithField("file", config.UsedConfigFile).Info("loaded config file")
	log.WithField("network", config.General.Network).Info("selected network")

	srv, err := Setup()
	if err != nil {
		log.WithError(err).Fatal("could not start node")
	}

	log.Info("initialization complete")

	<-interrupt

	srv.Close()

	log.Info("terminated")

	return nil
}
