// Package pkg provides the castgraph libraries for exploring character
// relationship graphs.
//
// # Overview
//
// Castgraph loads a graph of characters and their relations from a data
// service, grows it on demand and lays it out with a force simulation.
// Highlight modes, social-network analytics and shortest paths are computed
// on the loaded graph. The pkg directory is organized into four areas:
//
//  1. Data - [graph] (node and link store), [dataset] (CSV, SQLite and
//     MongoDB loading, PageRank and community detection)
//  2. Access - [dataservice] (HTTP client with caching and a circuit
//     breaker), [cache] (file, Redis and no-op backends)
//  3. Exploration - [explorer] (session event loop), [layout] (forces and
//     the simulator interface, Graphviz fdp in [layout/fdp]), [selection]
//     (highlight modes), [overlay] (path overlay and particles),
//     [analytics] (degree, bridges, leaders, relation histograms)
//  4. Output - [render/nodelink] (DOT, SVG and PNG through Graphviz)
//
// # Architecture
//
// The typical data flow:
//
//	data service (internal/server over a dataset)
//	         ↓
//	    [dataservice] client  ←→  [cache]
//	         ↓
//	    [explorer] session: [graph] store + [layout] + [selection] + [overlay]
//	         ↓
//	    terminal explorer, reports, [render/nodelink] pictures
//
// # Quick Start
//
//	client, _ := dataservice.New("http://localhost:8000")
//	sim := fdp.New()
//	defer sim.Close()
//
//	s := explorer.New(client, sim)
//	_ = s.LoadInitial(ctx, "Tony Stark")
//	_ = s.QueryPath(ctx, "Tony Stark", "Thanos")
//	_ = s.Settle(ctx)
//
//	dot := nodelink.ToDOT(s.Snapshot(), s.Assignment(), nodelink.Options{Labels: true})
//	svg, _ := nodelink.RenderSVG(ctx, dot)
//
// Errors carry a [errors.Code]; network failures and failed path queries are
// dismissible notices that leave the explored graph untouched.
//
// Instrumentation goes through the hook registries of [observability]; the
// defaults do nothing.
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/graph
// [dataset]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/dataset
// [dataservice]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/dataservice
// [cache]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/cache
// [explorer]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/explorer
// [layout]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/layout
// [layout/fdp]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/layout/fdp
// [selection]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/selection
// [overlay]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/overlay
// [analytics]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/analytics
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/render/nodelink
// [observability]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/observability
// [errors.Code]: https://pkg.go.dev/github.com/matzehuels/castgraph/pkg/errors#Code
package pkg
