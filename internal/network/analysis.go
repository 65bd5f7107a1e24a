package network

import (
	"math"

	"netattack-sim/internal/scenario"
)

type alwaysSucceed struct{}

func (alwaysSucceed) Float64() float64 { return 0 }

// Solvable reports whether some sequence of actions reaches the goal when
// every probability roll succeeds. It sweeps the flat action space until the
// state stops changing.
func Solvable(def *scenario.Definition) bool {
	space := NewActionSpace(def)
	exec := NewExecutor(def, alwaysSucceed{})
	s := NewState(def)
	for {
		if s.GoalReached() {
			return true
		}
		before := s.progress()
		for _, a := range space.actions {
			exec.Apply(s, a)
		}
		if s.progress() == before {
			return s.GoalReached()
		}
	}
}

const unreachable = -1

// SubnetDepths returns, for each subnet, the number of topology hops from
// the nearest public subnet. Subnets that cannot be reached are -1.
func SubnetDepths(def *scenario.Definition) []int {
	n := len(def.Subnets)
	depths := make([]int, n)
	var queue []int
	for s := 0; s < n; s++ {
		depths[s] = unreachable
		if def.Public(s) {
			depths[s] = 0
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for child := 0; child < n; child++ {
			if !def.Connected(parent, child) {
				continue
			}
			if depths[child] == unreachable || depths[child] > depths[parent]+1 {
				depths[child] = depths[parent] + 1
				queue = append(queue, child)
			}
		}
	}
	return depths
}

// MinimalSteps is the length of the shortest subnet walk that starts at the
// internet and visits every subnet holding a sensitive host, or -1 when one
// of them is cut off.
func MinimalSteps(def *scenario.Definition) int {
	dist := subnetDistances(def)
	var targets []int
	seen := map[int]bool{scenario.Internet: true}
	for _, a := range def.SensitiveAddresses() {
		if !seen[a.Subnet] {
			seen[a.Subnet] = true
			targets = append(targets, a.Subnet)
		}
	}
	best := math.MaxInt
	visited := make([]bool, len(targets))
	var walk func(at, depth, total int)
	walk = func(at, depth, total int) {
		if total >= best {
			return
		}
		if depth == len(targets) {
			best = total
			return
		}
		for i, t := range targets {
			if visited[i] || dist[at][t] == math.MaxInt {
				continue
			}
			visited[i] = true
			walk(t, depth+1, total+dist[at][t])
			visited[i] = false
		}
	}
	walk(scenario.Internet, 0, 0)
	if best == math.MaxInt {
		return unreachable
	}
	return best
}

// BestScore is the optimistic episode return: total sensitive value less one
// unit per minimal step.
func BestScore(def *scenario.Definition) float64 {
	return def.TotalSensitiveValue() - float64(MinimalSteps(def))
}

func subnetDistances(def *scenario.Definition) [][]int {
	n := len(def.Subnets)
	dist := make([][]int, n)
	for i := range dist {
		dist[i] = make([]int, n)
		for j := range dist[i] {
			switch {
			case i == j:
				dist[i][j] = 0
			case def.Connected(i, j):
				dist[i][j] = 1
			default:
				dist[i][j] = math.MaxInt
			}
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if dist[i][k] == math.MaxInt || dist[k][j] == math.MaxInt {
					continue
				}
				if d := dist[i][k] + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
				}
			}
		}
	}
	return dist
}
