package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alxayo/pipe/internal/logger"
	"github.com/alxayo/pipe/internal/pipeline/config"
	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/uclock"
	"github.com/alxayo/pipe/internal/pipeline/uprobe"
	"github.com/alxayo/pipe/internal/pipeline/upump"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var mmapDir string
	var queueDepth int

	cmd := &cobra.Command{
		Use:   "run <topology.yaml>",
		Short: "Build a topology's stages and wiring and serve it until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopology(args[0], mmapDir, queueDepth)
		},
	}
	cmd.Flags().StringVar(&mmapDir, "mmap-dir", "", "backing directory for mmap-allocated buffers (empty = in-memory pool)")
	cmd.Flags().IntVar(&queueDepth, "pump-queue-depth", 256, "event queue depth for the time-wheel pump manager")
	return cmd
}

func runTopology(path, mmapDir string, queueDepth int) error {
	log := logger.Logger().With("component", "pipe-server")

	top, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load topology: %w", err)
	}

	var alloc ubuf.Allocator
	if mmapDir != "" {
		alloc = ubuf.NewMmapAllocator(mmapDir)
	} else {
		alloc = ubuf.NewPoolAllocator(nil)
	}
	bufMgr := ubuf.NewManager(alloc)
	clock := uclock.NewMonotonic(time.Now())
	tw := upump.NewTimeWheel(queueDepth)

	probe := uprobe.NewProbe(logger.Logger())
	probe.Register(uprobe.NewPrefixLogger("pipe", logger.Logger()))
	probe.Register(uprobe.NewBufferManagerInjector(bufMgr))
	probe.Register(uprobe.NewClockInjector(clock))
	probe.Register(uprobe.NewPumpManagerInjector(tw))

	graph, err := config.Build(top, probe)
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}
	defer graph.Free()

	sup := upump.NewSupervisor("pipe-server")
	sup.AddTimeWheel(tw)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("topology running", "stages", len(top.Stages), "links", len(top.Links))
	err = sup.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	log.Info("shutdown signal received, tearing down topology")
	return nil
}
