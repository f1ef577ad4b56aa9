// Package region implements the opaque weighted directed zone graph: an
// O(1) distance/time lookup between integer zone ids, backed at load time
// by an all-pairs shortest-path fallback for pairs missing from the
// source data.
package region

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Edge is the (distance, time) pair associated with an ordered zone pair.
type Edge struct {
	DistanceKm float64
	TimeS      float64
}

// Sample is one observed trip between two zones, used when building a
// Region from raw historical data (see Load).
type Sample struct {
	From       int
	To         int
	DistanceKm float64
	TimeS      float64
}

// Region answers (distance_km, time_s) queries between zone ids. The zero
// value is not usable; construct with Load or LoadFile.
type Region struct {
	edges map[int]map[int]Edge
	zones []int
}

// Distance returns the stored or computed (distance_km, time_s) between
// u and v. Calling Distance with a zone id not present in the region is a
// programmer error and panics, per spec: "a distance call on unknown
// zones is a fatal programmer error."
func (r *Region) Distance(u, v int) (float64, float64) {
	row, ok := r.edges[u]
	if !ok {
		panic(fmt.Sprintf("region: unknown zone %d", u))
	}
	e, ok := row[v]
	if !ok {
		panic(fmt.Sprintf("region: unknown zone %d", v))
	}
	return e.DistanceKm, e.TimeS
}

// Zones returns the frozen set of zone ids still present in the region
// after load-time pruning. The returned slice must not be mutated.
func (r *Region) Zones() []int {
	return r.zones
}

// Has reports whether zone id z is present in the region.
func (r *Region) Has(z int) bool {
	_, ok := r.edges[z]
	return ok
}

// Load builds a Region from a declared zone set and observed trip
// samples. For each ordered pair (u, v) present in samples, the stored
// edge is the mean of observed distances/times. Pairs with no samples are
// filled in by Dijkstra shortest path (distance-weighted) at load time;
// unreachable pairs are recorded as (+Inf, +Inf) and then pruned per the
// rule below.
//
// Zones whose every outgoing pair to a zone other than themselves is
// unreachable are dropped, and any edge referencing a dropped zone is
// removed.
func Load(zones []int, samples []Sample) *Region {
	sum := make(map[int]map[int]Edge)
	count := make(map[int]map[int]int)
	zoneSet := make(map[int]bool, len(zones))
	for _, z := range zones {
		zoneSet[z] = true
		sum[z] = make(map[int]Edge)
		count[z] = make(map[int]int)
	}

	for _, s := range samples {
		if !zoneSet[s.From] || !zoneSet[s.To] {
			continue
		}
		e := sum[s.From][s.To]
		e.DistanceKm += s.DistanceKm
		e.TimeS += s.TimeS
		sum[s.From][s.To] = e
		count[s.From][s.To]++
	}

	edges := make(map[int]map[int]Edge, len(zones))
	for _, z := range zones {
		edges[z] = make(map[int]Edge)
	}
	for u, row := range sum {
		for v, e := range row {
			n := float64(count[u][v])
			edges[u][v] = Edge{DistanceKm: e.DistanceKm / n, TimeS: e.TimeS / n}
		}
	}
	for _, z := range zones {
		edges[z][z] = Edge{DistanceKm: 0, TimeS: 0}
	}

	fillShortestPaths(zones, edges)
	pruneUnreachable(zones, edges)

	r := &Region{edges: edges}
	r.zones = make([]int, 0, len(edges))
	for z := range edges {
		r.zones = append(r.zones, z)
	}
	return r
}

// LoadFile loads a region from a JSON document shaped
// zone id (string) -> zone id (string) -> {"distance_km": f, "time_s": f}.
// Declared zones are the union of keys present anywhere in the document;
// missing pairs are filled in exactly as in Load.
func LoadFile(path string) (*Region, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("region: read %s: %w", path, err)
	}

	var doc map[string]map[string]struct {
		DistanceKm float64 `json:"distance_km"`
		TimeS      float64 `json:"time_s"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("region: parse %s: %w", path, err)
	}

	zoneSet := make(map[int]bool)
	var samples []Sample
	for uStr, row := range doc {
		u, err := parseZone(uStr)
		if err != nil {
			return nil, fmt.Errorf("region: %s: %w", path, err)
		}
		zoneSet[u] = true
		for vStr, val := range row {
			v, err := parseZone(vStr)
			if err != nil {
				return nil, fmt.Errorf("region: %s: %w", path, err)
			}
			zoneSet[v] = true
			samples = append(samples, Sample{From: u, To: v, DistanceKm: val.DistanceKm, TimeS: val.TimeS})
		}
	}

	zones := make([]int, 0, len(zoneSet))
	for z := range zoneSet {
		zones = append(zones, z)
	}
	return Load(zones, samples), nil
}

func parseZone(s string) (int, error) {
	var z int
	if _, err := fmt.Sscanf(s, "%d", &z); err != nil {
		return 0, fmt.Errorf("invalid zone id %q: %w", s, err)
	}
	return z, nil
}

// fillShortestPaths runs Dijkstra from every zone using distance_km as
// edge weight, reconstructing the per-edge (distance, time) sum along the
// shortest path for every pair missing from edges. No shortest-path
// library exists in the codebase's dependency set; this is a standard
// hand-rolled implementation over a container/heap priority queue.
//
// Dijkstra and the subsequent reconstruction run only against a frozen
// snapshot of the originally observed edges: edges are filled into a
// separate map per source and merged into the live edges map only after
// every source has been processed. Filling directly into edges while
// iterating would let a later source's shortest path walk through an
// earlier source's synthesized fill as if it were a real, single-leg
// edge, double counting the underlying legs it already sums.
func fillShortestPaths(zones []int, edges map[int]map[int]Edge) {
	frozen := snapshotEdges(edges)
	fills := make(map[int]map[int]Edge, len(zones))

	for _, src := range zones {
		dist, prev := dijkstra(src, zones, frozen)
		for _, dst := range zones {
			if src == dst {
				continue
			}
			if _, ok := edges[src][dst]; ok {
				continue
			}
			if fills[src] == nil {
				fills[src] = make(map[int]Edge)
			}
			if math.IsInf(dist[dst], 1) {
				fills[src][dst] = Edge{DistanceKm: math.Inf(1), TimeS: math.Inf(1)}
				continue
			}
			fills[src][dst] = reconstruct(src, dst, prev, frozen)
		}
	}

	for src, row := range fills {
		for dst, e := range row {
			edges[src][dst] = e
		}
	}
}

// snapshotEdges returns a deep copy of edges, frozen for the duration of
// a fillShortestPaths pass.
func snapshotEdges(edges map[int]map[int]Edge) map[int]map[int]Edge {
	out := make(map[int]map[int]Edge, len(edges))
	for u, row := range edges {
		copyRow := make(map[int]Edge, len(row))
		for v, e := range row {
			copyRow[v] = e
		}
		out[u] = copyRow
	}
	return out
}

type pqItem struct {
	zone int
	dist float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

func dijkstra(src int, zones []int, edges map[int]map[int]Edge) (map[int]float64, map[int]int) {
	dist := make(map[int]float64, len(zones))
	prev := make(map[int]int, len(zones))
	visited := make(map[int]bool, len(zones))
	for _, z := range zones {
		dist[z] = math.Inf(1)
	}
	dist[src] = 0

	pq := &priorityQueue{{zone: src, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		top := heap.Pop(pq).(pqItem)
		u := top.zone
		if visited[u] {
			continue
		}
		visited[u] = true

		for v, e := range edges[u] {
			if v == u || math.IsInf(e.DistanceKm, 1) {
				continue
			}
			alt := dist[u] + e.DistanceKm
			if alt < dist[v] {
				dist[v] = alt
				prev[v] = u
				heap.Push(pq, pqItem{zone: v, dist: alt})
			}
		}
	}
	return dist, prev
}

func reconstruct(src, dst int, prev map[int]int, edges map[int]map[int]Edge) Edge {
	path := []int{dst}
	cur := dst
	for cur != src {
		p, ok := prev[cur]
		if !ok {
			return Edge{DistanceKm: math.Inf(1), TimeS: math.Inf(1)}
		}
		path = append(path, p)
		cur = p
	}
	// path is dst..src, walk it in reverse to sum edges src->...->dst.
	var totalDist, totalTime float64
	for i := len(path) - 1; i > 0; i-- {
		u, v := path[i], path[i-1]
		e := edges[u][v]
		totalDist += e.DistanceKm
		totalTime += e.TimeS
	}
	return Edge{DistanceKm: totalDist, TimeS: totalTime}
}

// pruneUnreachable drops any zone whose every outgoing edge (other than
// to itself) is (+Inf, +Inf), and removes incoming edges referencing it.
func pruneUnreachable(zones []int, edges map[int]map[int]Edge) {
	dropped := make(map[int]bool)
	for _, z := range zones {
		reachable := false
		for v, e := range edges[z] {
			if v == z {
				continue
			}
			if !math.IsInf(e.DistanceKm, 1) {
				reachable = true
				break
			}
		}
		if !reachable {
			dropped[z] = true
		}
	}
	for z := range dropped {
		delete(edges, z)
	}
	for u, row := range edges {
		if dropped[u] {
			continue
		}
		for v := range row {
			if dropped[v] {
				delete(row, v)
			}
		}
	}
}
