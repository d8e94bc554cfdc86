// Command metastore-probe resolves the configured metastore cluster and
// reports which endpoint accepted a connection. It can also register a
// metastore instance in etcd for discovery.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"metastore-cluster/client"
	"metastore-cluster/config"
	"metastore-cluster/registry"
)

func main() {
	app := &cli.App{
		Name:  "metastore-probe",
		Usage: "resolve and connect to a metastore cluster",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"METASTORE_CONFIG"}},
			&cli.StringFlag{Name: "uris", Usage: "comma-separated metastore URIs, overrides the config file"},
		},
		Commands: []*cli.Command{
			{
				Name:   "probe",
				Usage:  "acquire one client and print its address",
				Action: probe,
			},
			{
				Name:      "register",
				Usage:     "register host:port under a service in etcd until interrupted",
				ArgsUsage: "SERVICE HOST PORT",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "ttl", Value: 10, Usage: "lease TTL in seconds"},
					&cli.StringFlag{Name: "version", Usage: "metastore version recorded with the instance"},
				},
				Action: register,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func load(c *cli.Context, validate bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Read(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if uris := c.String("uris"); uris != "" {
		cfg.URIs = uris
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	log, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func probe(c *cli.Context) error {
	cfg, log, err := load(c, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	cl, err := client.New(cfg, log)
	if err != nil {
		return err
	}
	defer cl.Close()

	start := time.Now()
	mc, err := cl.AcquireClient(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer mc.Close()

	fmt.Fprintf(c.App.Writer, "connected to %s in %s\n", mc.Addr(), time.Since(start).Round(time.Millisecond))
	return nil
}

func register(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("usage: register SERVICE HOST PORT", 2)
	}
	var port int
	if _, err := fmt.Sscanf(c.Args().Get(2), "%d", &port); err != nil || port < 1 || port > 65535 {
		return cli.Exit(fmt.Sprintf("invalid port %q", c.Args().Get(2)), 2)
	}

	cfg, log, err := load(c, false)
	if err != nil {
		return err
	}
	defer log.Sync()

	endpoints := cfg.Etcd.Endpoints
	if len(endpoints) == 0 {
		endpoints = []string{"localhost:2379"}
	}
	reg, err := registry.NewEtcdRegistry(endpoints, cfg.Etcd.DialTimeout, cfg.Etcd.RequestTimeout, log)
	if err != nil {
		return err
	}
	defer reg.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := c.Args().Get(0)
	inst := registry.Instance{Host: c.Args().Get(1), Port: port, Version: c.String("version")}
	if err := reg.Register(ctx, service, inst, c.Int64("ttl")); err != nil {
		return err
	}
	<-ctx.Done()

	// ctx is done; deregister with a fresh deadline.
	dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return reg.Deregister(dctx, service, inst.Addr())
}
