// Package harness drives warm-up-aware timing of named operations over an
// ordered parameter sweep.
package harness

// Record is one row of the final report: the averaged runtime of a single
// operation at a single sweep value.
type Record[V any] struct {
	Method    string  `json:"method"`
	Operation string  `json:"algorithm"`
	Sweep     V       `json:"sweep"`
	Seconds   float64 `json:"runtime_seconds"`
}

// Average is the post-warm-up mean runtime of one operation.
type Average struct {
	Operation string
	Seconds   float64
}

// SweepResult holds the averages for every operation measured at one sweep
// value, in operation-declaration order.
type SweepResult[V any] struct {
	Value    V
	Averages []Average
}

// Assemble flattens per-sweep averages into report records tagged with
// method. Records are ordered by sweep value, then by operation.
func Assemble[V any](method string, results []SweepResult[V]) []Record[V] {
	n := 0
	for _, r := range results {
		n += len(r.Averages)
	}

	records := make([]Record[V], 0, n)

	for _, r := range results {
		for _, avg := range r.Averages {
			records = append(records, Record[V]{
				Method:    method,
				Operation: avg.Operation,
				Sweep:     r.Value,
				Seconds:   avg.Seconds,
			})
		}
	}

	return records
}
