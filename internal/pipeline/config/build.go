package config

import (
	"fmt"

	"github.com/alxayo/pipe/internal/pipeline/modules/psimerge"
	"github.com/alxayo/pipe/internal/pipeline/modules/trickplay"
	"github.com/alxayo/pipe/internal/pipeline/upipe"
	"github.com/alxayo/pipe/internal/pipeline/uprobe"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// Graph is a built topology: every stage it allocated, keyed by the ID
// the document named, plus the manager that owns each one (Free needs
// both).
type Graph struct {
	probe   *uprobe.Probe
	stages  map[string]upipe.Stage
	mgrs    map[string]upipe.Manager
	stageMg map[string]upipe.Manager
}

// Stage returns the allocated stage for id, or false if no such ID was
// declared in the topology.
func (g *Graph) Stage(id string) (upipe.Stage, bool) {
	s, ok := g.stages[id]
	return s, ok
}

// Free tears down every stage in the graph, trickplay subs first: each
// sub's Free releases its owning back-reference on its parent, so by the
// time a trickplay.parent's own Free runs it holds only its initial
// reference, and that release tears it down.
func (g *Graph) Free() {
	for id, s := range g.stages {
		if _, ok := s.(*trickplay.SubStage); !ok {
			continue
		}
		_ = g.stageMg[id].Free(s)
		delete(g.stages, id)
	}
	for id, s := range g.stages {
		_ = g.stageMg[id].Free(s)
		delete(g.stages, id)
	}
}

// Build allocates every stage named in top against probe, in dependency
// order (a trickplay.sub needs its parent's *trickplay.ParentStage
// already allocated), then wires every link by calling the upstream
// stage's Control(KindSetOutput) with an InputFunc that forwards into
// the downstream stage's Manager.Input — the Go equivalent of the
// teacher's accept-loop wiring a freshly connected stream's output into
// the registry's dispatch table.
func Build(top *Topology, probe *uprobe.Probe) (*Graph, error) {
	psiMgr := psimerge.NewManager()
	parentMgr := trickplay.NewParentManager()
	subMgr := trickplay.NewSubManager()

	g := &Graph{
		probe:   probe,
		stages:  make(map[string]upipe.Stage, len(top.Stages)),
		mgrs:    map[string]upipe.Manager{"psimerge": psiMgr, "trickplay.parent": parentMgr, "trickplay.sub": subMgr},
		stageMg: make(map[string]upipe.Manager, len(top.Stages)),
	}

	// Pass 1: everything that isn't a trickplay.sub (parents must exist
	// before any sub can be allocated against them).
	for _, spec := range top.Stages {
		if spec.Kind == "trickplay.sub" {
			continue
		}
		mgr := g.mgrs[spec.Kind]
		stage, err := mgr.Alloc(probe)
		if err != nil {
			return nil, fmt.Errorf("config: alloc %q (%s): %w", spec.ID, spec.Kind, err)
		}
		g.stages[spec.ID] = stage
		g.stageMg[spec.ID] = mgr
	}

	// Pass 2: trickplay.sub stages, now that every parent exists.
	for _, spec := range top.Stages {
		if spec.Kind != "trickplay.sub" {
			continue
		}
		parentStage, ok := g.stages[spec.Parent]
		if !ok {
			return nil, fmt.Errorf("config: alloc %q: parent %q not built", spec.ID, spec.Parent)
		}
		parent, ok := parentStage.(*trickplay.ParentStage)
		if !ok {
			return nil, fmt.Errorf("config: alloc %q: parent %q is not a trickplay.parent stage", spec.ID, spec.Parent)
		}
		stage, err := subMgr.Alloc(probe, spec.FlowDef, parent)
		if err != nil {
			return nil, fmt.Errorf("config: alloc %q (trickplay.sub): %w", spec.ID, err)
		}
		g.stages[spec.ID] = stage
		g.stageMg[spec.ID] = subMgr
	}

	for _, link := range top.Links {
		if err := g.wire(link); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// wire connects link.From's output to link.To's Input by issuing a
// KindSetOutput control to the upstream stage with an InputFunc closing
// over the downstream stage and its manager.
func (g *Graph) wire(link LinkSpec) error {
	fromStage := g.stages[link.From]
	fromMgr := g.stageMg[link.From]
	toStage := g.stages[link.To]
	toMgr := g.stageMg[link.To]

	input := upipe.InputFunc(func(rec *uref.Ref, pumpCtx any) { toMgr.Input(toStage, rec, pumpCtx) })

	status, err := fromMgr.Control(fromStage, upipe.Control{
		Kind: upipe.KindSetOutput,
		Ext:  input,
	})
	if err != nil {
		return fmt.Errorf("config: wire %s->%s: %w", link.From, link.To, err)
	}
	if status != upipe.StatusOK {
		return fmt.Errorf("config: wire %s->%s: set-output unhandled", link.From, link.To)
	}
	return nil
}
