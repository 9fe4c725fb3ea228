package opt

import (
	"math"
	"math/rand"
	"time"

	"fleetroute/internal/model"
)

// Options tune one solver call. The zero value gives the production
// defaults; tests pin MaxIterations and Seed for determinism.
type Options struct {
	TimeBudget    time.Duration // wall-clock budget, default 10s
	MaxIterations int           // 0 = budget only
	Seed          int64         // 0 = time-derived
	PenaltyFactor float64       // guided-search lambda scale, default 0.15
}

// Metrics reports what one solver call did.
type Metrics struct {
	Iterations   int           `json:"iterations"`
	Improvements int           `json:"improvements"`
	Penalized    int           `json:"penalized"`
	InitialCost  int           `json:"initialCost"`
	BestCost     int           `json:"bestCost"`
	Elapsed      time.Duration `json:"elapsed"`
}

// assignment holds the interior stop order per vehicle during search.
type assignment [][]int

func (a assignment) clone() assignment {
	out := make(assignment, len(a))
	for i, r := range a {
		out[i] = append([]int(nil), r...)
	}
	return out
}

// Solve searches for a feasible low-cost route set for p. It is a pure
// boundary: each call builds its own state from the problem and shares
// nothing with other calls.
//
// Construction is a cheapest-arc greedy pass under the capacity and priority
// dimensions; improvement is a guided local search over stop swaps and
// segment relocations, where frequently reused arcs accumulate penalties
// that inflate their cost until the search escapes the local minimum. The
// deadline is cooperative: it is checked between iterations, never
// preemptively. Returns the best feasible solution found, never a partial
// one.
func Solve(p Problem, opts Options) (model.Solution, Metrics, error) {
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = 10 * time.Second
	}
	if opts.PenaltyFactor <= 0 {
		opts.PenaltyFactor = 0.15
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var m Metrics
	start := time.Now()
	n := p.Customers()
	if n == 0 {
		return model.Solution{Routes: []model.Route{}}, m, nil
	}
	totalDemand := 0
	for _, d := range p.Demands {
		totalDemand += d
	}
	if totalDemand > p.Vehicles*p.Capacity {
		return model.Solution{}, m, ErrInfeasible
	}

	s := newSearch(p, rng, opts.PenaltyFactor)
	cur := s.construct()
	m.InitialCost = s.trueCost(cur)

	var best assignment
	bestCost := math.MaxInt
	if s.unassignedCount(cur) == 0 {
		best = cur.clone()
		bestCost = m.InitialCost
		m.BestCost = bestCost
	}

	deadline := start.Add(opts.TimeBudget)
	for time.Now().Before(deadline) {
		m.Iterations++
		if opts.MaxIterations > 0 && m.Iterations > opts.MaxIterations {
			break
		}
		s.repair(cur)
		improved := s.improveOnce(cur)
		if s.unassignedCount(cur) == 0 {
			if c := s.trueCost(cur); c < bestCost {
				best = cur.clone()
				bestCost = c
				m.Improvements++
				m.BestCost = bestCost
			}
		}
		if !improved {
			s.penalize(cur)
			m.Penalized++
		}
	}
	m.Elapsed = time.Since(start)

	if best == nil {
		return model.Solution{}, m, ErrNoSolution
	}
	return Extract(p, best), m, nil
}

// search carries per-call solver state: the problem, arc penalties, and the
// scaled penalty weight.
type search struct {
	p         Problem
	rng       *rand.Rand
	penalties [][]int
	lambda    float64
	visited   []bool // customer index -> assigned
}

func newSearch(p Problem, rng *rand.Rand, penaltyFactor float64) *search {
	size := len(p.Locations)
	pen := make([][]int, size)
	for i := range pen {
		pen[i] = make([]int, size)
	}
	// Lambda scales penalties to the instance: a fraction of the mean arc.
	sum, cnt := 0, 0
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			sum += p.Matrix[i][j]
			cnt++
		}
	}
	mean := 0.0
	if cnt > 0 {
		mean = float64(sum) / float64(cnt)
	}
	return &search{
		p:         p,
		rng:       rng,
		penalties: pen,
		lambda:    penaltyFactor * mean,
		visited:   make([]bool, size),
	}
}

// construct runs cheapest-arc greedy insertion: vehicles take turns
// appending the nearest customer that keeps both dimensions feasible.
func (s *search) construct() assignment {
	a := make(assignment, s.p.Vehicles)
	for {
		progress := false
		for v := range a {
			bestIdx, bestArc := -1, math.MaxInt
			last := DepotIndex
			if len(a[v]) > 0 {
				last = a[v][len(a[v])-1]
			}
			for c := 1; c < len(s.p.Locations); c++ {
				if s.visited[c] || !s.fits(a[v], c) {
					continue
				}
				if d := s.p.Matrix[last][c]; d < bestArc {
					bestArc = d
					bestIdx = c
				}
			}
			if bestIdx >= 0 {
				a[v] = append(a[v], bestIdx)
				s.visited[bestIdx] = true
				progress = true
			}
		}
		if !progress {
			return a
		}
	}
}

// fits reports whether customer c can join route r under the capacity and
// cumulative-priority dimensions.
func (s *search) fits(r []int, c int) bool {
	demand, prio := s.p.Demands[c], s.p.Priorities[c]
	for _, idx := range r {
		demand += s.p.Demands[idx]
		prio += s.p.Priorities[idx]
	}
	return demand <= s.p.Capacity && prio <= s.p.MaxRoutePriority
}

func (s *search) unassignedCount(a assignment) int {
	return s.p.Customers() - assignedCount(a)
}

func assignedCount(a assignment) int {
	n := 0
	for _, r := range a {
		n += len(r)
	}
	return n
}

// repair tries to place customers the construction phase could not, using
// cheapest feasible insertion. Scan order is shuffled so repeated attempts
// explore different placements.
func (s *search) repair(a assignment) {
	var missing []int
	for c := 1; c < len(s.p.Locations); c++ {
		if !s.visited[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return
	}
	s.rng.Shuffle(len(missing), func(i, j int) { missing[i], missing[j] = missing[j], missing[i] })
	for _, c := range missing {
		bestV, bestPos, bestDelta := -1, -1, math.MaxInt
		for v := range a {
			if !s.fits(a[v], c) {
				continue
			}
			for pos := 0; pos <= len(a[v]); pos++ {
				if d := s.insertDelta(a[v], c, pos); d < bestDelta {
					bestDelta = d
					bestV = v
					bestPos = pos
				}
			}
		}
		if bestV >= 0 {
			a[bestV] = insertAt(a[bestV], c, bestPos)
			s.visited[c] = true
		}
	}
}

func insertAt(r []int, c, pos int) []int {
	r = append(r, 0)
	copy(r[pos+1:], r[pos:])
	r[pos] = c
	return r
}

// insertDelta is the true-cost change of inserting c at pos in r.
func (s *search) insertDelta(r []int, c, pos int) int {
	prev, next := DepotIndex, DepotIndex
	if pos > 0 {
		prev = r[pos-1]
	}
	if pos < len(r) {
		next = r[pos]
	}
	return s.p.Matrix[prev][c] + s.p.Matrix[c][next] - s.p.Matrix[prev][next]
}

// trueCost is the unpenalized total closed-loop distance.
func (s *search) trueCost(a assignment) int {
	total := 0
	for _, r := range a {
		total += s.loopCost(r, false)
	}
	return total
}

func (s *search) loopCost(r []int, penalized bool) int {
	if len(r) == 0 {
		return 0
	}
	total := 0
	prev := DepotIndex
	for _, idx := range r {
		total += s.arcCost(prev, idx, penalized)
		prev = idx
	}
	total += s.arcCost(prev, DepotIndex, penalized)
	return total
}

func (s *search) arcCost(a, b int, penalized bool) int {
	d := s.p.Matrix[a][b]
	if penalized {
		d += int(s.lambda * float64(s.penalties[a][b]))
	}
	return d
}

// improveOnce applies the single best improving move over the pairwise-swap
// and segment-relocation neighborhoods, judged on penalized cost. Returns
// false when the search sits in a local minimum.
func (s *search) improveOnce(a assignment) bool {
	type move struct {
		apply func()
		delta int
	}
	var best *move

	consider := func(delta int, apply func()) {
		if delta >= 0 {
			return
		}
		if best == nil || delta < best.delta {
			best = &move{apply: apply, delta: delta}
		}
	}

	// Pairwise stop swaps, intra- and inter-route.
	for va := range a {
		for ia := range a[va] {
			for vb := va; vb < len(a); vb++ {
				jStart := 0
				if vb == va {
					jStart = ia + 1
				}
				for ib := jStart; ib < len(a[vb]); ib++ {
					va, vb, ia, ib := va, vb, ia, ib
					if !s.swapFeasible(a, va, ia, vb, ib) {
						continue
					}
					before := s.loopCost(a[va], true)
					if vb != va {
						before += s.loopCost(a[vb], true)
					}
					a[va][ia], a[vb][ib] = a[vb][ib], a[va][ia]
					after := s.loopCost(a[va], true)
					if vb != va {
						after += s.loopCost(a[vb], true)
					}
					a[va][ia], a[vb][ib] = a[vb][ib], a[va][ia]
					consider(after-before, func() {
						a[va][ia], a[vb][ib] = a[vb][ib], a[va][ia]
					})
				}
			}
		}
	}

	// Segment relocation: move 1-2 consecutive stops to another position,
	// possibly on another vehicle.
	for va := range a {
		for ia := 0; ia < len(a[va]); ia++ {
			for seg := 1; seg <= 2 && ia+seg <= len(a[va]); seg++ {
				for vb := range a {
					limit := len(a[vb])
					for pos := 0; pos <= limit; pos++ {
						if vb == va && pos >= ia && pos <= ia+seg {
							continue
						}
						va, vb, ia, seg, pos := va, vb, ia, seg, pos
						if vb != va && !s.segmentFits(a[vb], a[va][ia:ia+seg]) {
							continue
						}
						before := s.loopCost(a[va], true)
						if vb != va {
							before += s.loopCost(a[vb], true)
						}
						na, nb := relocate(a[va], a[vb], va == vb, ia, seg, pos)
						after := s.loopCost(na, true)
						if vb != va {
							after += s.loopCost(nb, true)
						}
						consider(after-before, func() {
							na, nb := relocate(a[va], a[vb], va == vb, ia, seg, pos)
							a[va] = na
							if vb != va {
								a[vb] = nb
							}
						})
					}
				}
			}
		}
	}

	if best == nil {
		return false
	}
	best.apply()
	return true
}

// relocate removes r1[i:i+seg] and inserts it at pos. When same is true the
// segment moves within r1 and r2 is ignored.
func relocate(r1, r2 []int, same bool, i, seg, pos int) ([]int, []int) {
	segment := append([]int(nil), r1[i:i+seg]...)
	rest := append([]int(nil), r1[:i]...)
	rest = append(rest, r1[i+seg:]...)
	if same {
		p := pos
		if p > i {
			p -= seg
		}
		if p > len(rest) {
			p = len(rest)
		}
		out := append([]int(nil), rest[:p]...)
		out = append(out, segment...)
		out = append(out, rest[p:]...)
		return out, nil
	}
	if pos > len(r2) {
		pos = len(r2)
	}
	out2 := append([]int(nil), r2[:pos]...)
	out2 = append(out2, segment...)
	out2 = append(out2, r2[pos:]...)
	return rest, out2
}

func (s *search) swapFeasible(a assignment, va, ia, vb, ib int) bool {
	if va == vb {
		return true
	}
	ca, cb := a[va][ia], a[vb][ib]
	da, pa := s.routeDims(a[va])
	db, pb := s.routeDims(a[vb])
	da += s.p.Demands[cb] - s.p.Demands[ca]
	pa += s.p.Priorities[cb] - s.p.Priorities[ca]
	db += s.p.Demands[ca] - s.p.Demands[cb]
	pb += s.p.Priorities[ca] - s.p.Priorities[cb]
	return da <= s.p.Capacity && pa <= s.p.MaxRoutePriority &&
		db <= s.p.Capacity && pb <= s.p.MaxRoutePriority
}

func (s *search) segmentFits(r []int, seg []int) bool {
	d, pr := s.routeDims(r)
	for _, c := range seg {
		d += s.p.Demands[c]
		pr += s.p.Priorities[c]
	}
	return d <= s.p.Capacity && pr <= s.p.MaxRoutePriority
}

func (s *search) routeDims(r []int) (demand, prio int) {
	for _, c := range r {
		demand += s.p.Demands[c]
		prio += s.p.Priorities[c]
	}
	return demand, prio
}

// penalize bumps the penalty of the currently used arcs with the highest
// utility (long arcs that have been penalized least), steering the next
// descent away from them.
func (s *search) penalize(a assignment) {
	bestUtil := -1.0
	type arc struct{ a, b int }
	var targets []arc
	visit := func(x, y int) {
		util := float64(s.p.Matrix[x][y]) / float64(1+s.penalties[x][y])
		if util > bestUtil {
			bestUtil = util
			targets = targets[:0]
			targets = append(targets, arc{x, y})
		} else if util == bestUtil {
			targets = append(targets, arc{x, y})
		}
	}
	for _, r := range a {
		if len(r) == 0 {
			continue
		}
		prev := DepotIndex
		for _, idx := range r {
			visit(prev, idx)
			prev = idx
		}
		visit(prev, DepotIndex)
	}
	for _, t := range targets {
		s.penalties[t.a][t.b]++
		s.penalties[t.b][t.a]++
	}
}
