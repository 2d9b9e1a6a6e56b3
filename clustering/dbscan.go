package clustering

// dbscan runs density-based clustering over a precomputed distance matrix.
// dist[i][j] is the pairwise distance, eps the neighborhood radius and
// minPoints the density threshold (the point itself counts). Returns groups
// of point indices; noise points belong to no group and are dropped.
func dbscan(dist [][]float64, eps float64, minPoints int) [][]int {
	n := len(dist)
	const (
		unvisited = 0
		noise     = -1
	)
	labels := make([]int, n)

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if dist[i][j] <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	var groups [][]int
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		nbs := neighbors(i)
		if len(nbs) < minPoints {
			labels[i] = noise
			continue
		}

		cluster := len(groups) + 1
		labels[i] = cluster
		members := []int{i}

		queue := append([]int(nil), nbs...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if labels[j] == noise {
				labels[j] = cluster
				members = append(members, j)
				continue
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			members = append(members, j)
			jnbs := neighbors(j)
			if len(jnbs) >= minPoints {
				queue = append(queue, jnbs...)
			}
		}
		groups = append(groups, members)
	}
	return groups
}
