package main

import (
	"os"

	"github.com/Konsultn-Engineering/fastprop/internal/bench"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	config, err := bench.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	app := &cli.App{
		Name:  "propbench",
		Usage: "compare direct, fastprop and reflect property access",
		Flags: flags(config),
		Action: func(c *cli.Context) error {
			config.Properties = c.StringSlice("property")
			return run(config)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func flags(config *bench.Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "iterations",
			Aliases:     []string{"n"},
			EnvVars:     []string{"PROPBENCH_ITERATIONS"},
			Value:       config.Iterations,
			Destination: &config.Iterations,
		},
		&cli.StringSliceFlag{
			Name:    "property",
			Aliases: []string{"p"},
			Usage:   "property of the sample object to time, repeatable",
			Value:   cli.NewStringSlice(config.Properties...),
		},
		&cli.BoolFlag{
			Name:        "debug",
			Destination: &config.Debug,
		},
	}
}

func run(config *bench.Config) error {
	if config.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	results, err := bench.Run(config, logrus.StandardLogger())
	if err != nil {
		return err
	}
	return bench.Print(os.Stdout, config.Iterations, results)
}
