package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	config "github.com/NordCoder/Hertz/internal/config/monitor"
	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/services/monitor"
	"go.uber.org/zap"
)

// admin edits the stored service set without starting any probes.
func admin(ctx context.Context, cfg *config.Config, l *zap.Logger, args []string) error {
	store, _, closeStore, err := openStore(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := monitor.NewRegistry(store, cfg.History.Capacity, l).WithWriteTimeout(cfg.Store.WriteTimeout)
	if _, err := reg.Load(ctx); err != nil {
		if !errors.Is(err, service.ErrInvalidConfig) {
			return err
		}
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	switch args[0] {
	case "list":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTARGET\tINTERVAL")
		for _, c := range reg.Configs() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.TargetURL(), c.Interval)
		}
		return w.Flush()

	case "add":
		if len(args) < 3 {
			return errors.New("usage: add <name> <url> [path] [interval]")
		}
		c := service.Config{Name: args[1], BaseURL: args[2], Interval: service.DefaultInterval}
		if len(args) > 3 {
			c.Path = args[3]
		}
		if len(args) > 4 {
			sec, err := strconv.Atoi(args[4])
			if err != nil {
				return fmt.Errorf("interval %q: %w", args[4], err)
			}
			c.Interval = time.Duration(sec) * time.Second
		}
		id, err := reg.Add(ctx, c)
		if err != nil {
			return err
		}
		fmt.Printf("added %s\n", id)
		return nil

	case "remove":
		if len(args) < 2 {
			return errors.New("usage: remove <name>")
		}
		if err := reg.Remove(ctx, service.ID(args[1])); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
