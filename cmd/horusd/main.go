// Command horusd is the minimal host process for a horus core
// deployment: it loads a configuration file, resolves the endpoint each
// declared hub/link will bind to, and hands off to the scheduler.
//
// Grounded on the teacher's cmd/cli/cli app wiring (urfave/cli App with
// a help template and a flat command list), trimmed to the two
// subcommands this core needs: `run` and `preset list`.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/horus-robotics/horus/config"
	"github.com/horus-robotics/horus/endpoint"
	"github.com/horus-robotics/horus/internal/nlog"
	"github.com/horus-robotics/horus/sched"
)

func main() {
	app := cli.NewApp()
	app.Name = "horusd"
	app.Usage = "horus core host process"
	app.Commands = []cli.Command{
		runCommand,
		presetCommand,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "horusd:", err)
		os.Exit(1)
	}
}

var runCommand = cli.Command{
	Name:  "run",
	Usage: "load a configuration and run the scheduler until interrupted",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to a horus configuration file (search paths used if omitted)"},
	},
	Action: runAction,
}

func runAction(c *cli.Context) error {
	file, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	log := nlog.New(os.Stderr)

	schedCfg := config.Standard()
	if file.Scheduler != nil {
		schedCfg = *file.Scheduler
	}

	for name, hc := range file.Hubs {
		ep, err := endpoint.Parse(hc.ResolvedEndpoint(name))
		if err != nil {
			return fmt.Errorf("horusd: hub %q: %w", name, err)
		}
		log.Infof("horusd", "hub %q bound to %s (%s)", name, ep.String(), ep.Kind)
	}

	s := sched.New(schedCfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Infof("horusd", "shutdown requested")
		cancel()
	}()

	log.Infof("horusd", "scheduler starting (execution=%s, rate=%.1fHz)", schedCfg.Execution, schedCfg.Timing.GlobalRateHz)
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("horusd: scheduler exited: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.File, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

var presetCommand = cli.Command{
	Name:  "preset",
	Usage: "inspect the named scheduler presets",
	Subcommands: []cli.Command{
		{
			Name:   "list",
			Usage:  "print every named preset",
			Action: presetListAction,
		},
	},
}

func presetListAction(*cli.Context) error {
	for _, name := range config.PresetNames() {
		fmt.Println(name)
	}
	return nil
}
