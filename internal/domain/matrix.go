package domain

// DefaultSentinel replaces the distance and duration of an unreachable pair
// under the substitute failure policy.
const DefaultSentinel = 9999.0

// Square pairwise cost matrix over a day's point list.
// Distance is in kilometers, Duration in minutes. The diagonal is always zero;
// off-diagonal entries need not be symmetric.
type DistanceMatrix struct {
	Distance [][]float64
	Duration [][]float64
}

func NewDistanceMatrix(n int) DistanceMatrix {
	m := DistanceMatrix{
		Distance: make([][]float64, n),
		Duration: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		m.Distance[i] = make([]float64, n)
		m.Duration[i] = make([]float64, n)
	}
	return m
}

func (m DistanceMatrix) Size() int { return len(m.Distance) }

// Set stores both planes for the ordered pair (i, j).
func (m DistanceMatrix) Set(i, j int, km, minutes float64) {
	m.Distance[i][j] = km
	m.Duration[i][j] = minutes
}

// Ordered matrix index pair.
type Pair struct {
	From int
	To   int
}
