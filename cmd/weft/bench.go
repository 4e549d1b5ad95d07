package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/weft-dev/weft"
	"github.com/weft-dev/weft/internal/config"
	"github.com/weft-dev/weft/internal/devtools"
	"github.com/weft-dev/weft/pkg/reconcile"
	"github.com/weft-dev/weft/pkg/widget"
)

func benchCmd() *cobra.Command {
	var (
		configPath string
		nodes      int
		passes     int
		profile    string
		seed       int64
		listenAddr string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic reconciliation workload",
		Long: `Bench reconciles a keyed list through a stream of mutations and
reports latency percentiles and the patch mix.

Profiles:

  shuffle   permute the list every pass
  prepend   grow the list from the front
  append    grow the list from the back
  update    change props in place, no structural churn
  mixed     rotate through all of the above

With --listen the run exposes the diagnostics server (metrics,
contexts, the /inspect websocket feed) while it works; attach with
"weft inspect".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("nodes") {
				nodes = cfg.Bench.Nodes
			}
			if !cmd.Flags().Changed("passes") {
				passes = cfg.Bench.Passes
			}
			if !cmd.Flags().Changed("profile") {
				profile = cfg.Bench.Profile
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Bench.Seed
			}
			if listenAddr == "" {
				listenAddr = cfg.Inspector.Addr
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			return runBench(cmd, benchParams{
				runID:   uuid.NewString(),
				nodes:   nodes,
				passes:  passes,
				profile: profile,
				seed:    seed,
				listen:  cmd.Flags().Changed("listen"),
				addr:    listenAddr,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to weft.json")
	cmd.Flags().IntVarP(&nodes, "nodes", "n", config.DefaultBenchNodes, "Keyed-list size")
	cmd.Flags().IntVarP(&passes, "passes", "p", config.DefaultBenchPasses, "Number of reconciliation passes")
	cmd.Flags().StringVar(&profile, "profile", "mixed", "Workload profile: shuffle, prepend, append, update or mixed")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Workload RNG seed (0 = time-based)")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Expose the diagnostics server on this address during the run (empty uses weft.json's inspector.addr)")

	return cmd
}

type benchParams struct {
	runID   string
	nodes   int
	passes  int
	profile string
	seed    int64
	listen  bool
	addr    string
}

func runBench(cmd *cobra.Command, p benchParams) error {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	opts := []weft.Option{
		weft.WithLogger(log),
		weft.WithMetrics(weft.NewMetrics(
			weft.WithRegistry(reg),
			weft.WithConstLabels(prometheus.Labels{"run": p.runID}),
		)),
	}

	var hub *devtools.Hub
	if p.listen {
		hub = devtools.NewHub(log)
		opts = append(opts, weft.WithObserver(hub))
	}
	r := weft.New(opts...)

	if p.listen {
		srv := &http.Server{Addr: p.addr, Handler: devtools.NewServer(r, hub, reg, log)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				warn("inspector server: %v", err)
			}
		}()
		defer srv.Close()
		info("inspector listening on http://%s", p.addr)
	}

	rng := rand.New(rand.NewSource(p.seed))
	w := &workload{rng: rng, keys: make([]int, p.nodes), generation: make(map[int]int)}
	for i := range w.keys {
		w.keys[i] = i
	}
	w.nextKey = p.nodes

	info("run %s: %d nodes, %d passes, profile %s, seed %d", p.runID, p.nodes, p.passes, p.profile, p.seed)

	ctx := context.Background()
	if _, err := r.Reconcile(ctx, weft.DefaultContext, w.tree(), "app"); err != nil {
		return fmt.Errorf("initial mount: %w", err)
	}

	durations := make([]time.Duration, 0, p.passes)
	var total reconcile.Stats
	for i := 0; i < p.passes; i++ {
		w.mutate(p.profile, i)
		res, err := r.Reconcile(ctx, weft.DefaultContext, w.tree(), "app")
		if err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}
		durations = append(durations, res.Stats.Duration)
		total.Inserts += res.Stats.Inserts
		total.Removes += res.Stats.Removes
		total.Updates += res.Stats.Updates
		total.Moves += res.Stats.Moves
		total.Replaces += res.Stats.Replaces
	}

	if len(durations) == 0 {
		success("bench complete (no passes)")
		return nil
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nLatency:\n")
	fmt.Fprintf(out, "  p50  %v\n", percentile(durations, 50))
	fmt.Fprintf(out, "  p90  %v\n", percentile(durations, 90))
	fmt.Fprintf(out, "  p99  %v\n", percentile(durations, 99))
	fmt.Fprintf(out, "  max  %v\n", durations[len(durations)-1])
	fmt.Fprintf(out, "\nPatch mix over %d passes:\n", p.passes)
	fmt.Fprintf(out, "  INSERT  %d\n", total.Inserts)
	fmt.Fprintf(out, "  REMOVE  %d\n", total.Removes)
	fmt.Fprintf(out, "  UPDATE  %d\n", total.Updates)
	fmt.Fprintf(out, "  MOVE    %d\n", total.Moves)
	fmt.Fprintf(out, "  REPLACE %d\n", total.Replaces)
	success("bench complete")
	return nil
}

func percentile(sorted []time.Duration, pct int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * pct / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// workload evolves a keyed list between passes.
type workload struct {
	rng        *rand.Rand
	keys       []int
	nextKey    int
	generation map[int]int // key -> prop revision, bumped by update passes
}

func (w *workload) tree() *widget.Node {
	items := make([]*widget.Node, len(w.keys))
	for i, k := range w.keys {
		items[i] = widget.El("li",
			widget.MustKey(k),
			widget.P("class", fmt.Sprintf("row gen-%d", w.generation[k])),
			widget.Textf("item %d", k),
		)
	}
	return widget.El("ul", widget.P("class", "bench"), items)
}

func (w *workload) mutate(profile string, pass int) {
	if profile == "mixed" {
		switch pass % 4 {
		case 0:
			profile = "shuffle"
		case 1:
			profile = "prepend"
		case 2:
			profile = "update"
		case 3:
			profile = "append"
		}
	}
	switch profile {
	case "shuffle":
		w.rng.Shuffle(len(w.keys), func(i, j int) {
			w.keys[i], w.keys[j] = w.keys[j], w.keys[i]
		})
	case "prepend":
		w.keys = append([]int{w.nextKey}, w.keys...)
		w.nextKey++
	case "append":
		w.keys = append(w.keys, w.nextKey)
		w.nextKey++
	case "update":
		if len(w.keys) == 0 {
			return
		}
		// Touch a tenth of the list.
		n := len(w.keys)/10 + 1
		for i := 0; i < n; i++ {
			k := w.keys[w.rng.Intn(len(w.keys))]
			w.generation[k]++
		}
	}
}
