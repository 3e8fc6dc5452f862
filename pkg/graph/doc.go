// Package graph provides the canonical character graph: node and link types,
// the JSON wire format of the data service, and the deduplicating [Store].
//
// # Store
//
// [Store] owns the node/link collection shared by every view. It only grows
// through [Store.Merge]:
//
//	s := graph.NewStore()
//	res := s.Merge(payload.Nodes, payload.Links, graph.SeedAt(parentPos))
//	fmt.Println(res.AddedNodes, res.AddedLinks)
//
// Merge is idempotent and order independent. A node whose id is already
// stored is ignored (the stored copy wins). Links are undirected for
// deduplication, so (a,b) and (b,a) are the same link, and a link whose
// endpoint is missing after the node pass is dropped.
//
// # Wire Format
//
// Node ids arrive as JSON strings or integers and decode to [ID]. Link
// endpoints arrive either as raw ids or as hydrated node objects; both decode
// to ids, so a [Link] never holds a node reference:
//
//	{"nodes": [{"id": 1, "name": "A"}], "links": [{"source": 1, "target": {"id": 2}}]}
//
// # Concurrency
//
// Store is not safe for concurrent use. The explorer session owns the store
// and serializes every access on its event loop.
package graph
