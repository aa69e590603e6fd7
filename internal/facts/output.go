package facts

import (
	"encoding/json"
	"fmt"
	"os"
)

// AnalysisOutput is the part of the analysis engine's output this package reads.
// Other fields of the engine's JSON are ignored.
type AnalysisOutput struct {
	LoanPoints  OrderedMap[LoanKey, CharRange] `json:"loan_points"`
	LoanRegions OrderedMap[LoanKey, Region]    `json:"loan_regions"`
	MovePoints  OrderedMap[MoveKey, CharRange] `json:"move_points"`
	MoveRegions OrderedMap[MoveKey, Region]    `json:"move_regions"`
}

// Decode parses analysis JSON.
func Decode(data []byte) (*AnalysisOutput, error) {
	var out AnalysisOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode analysis output: %w", err)
	}
	return &out, nil
}

// ReadFile loads and parses an analysis JSON file.
func ReadFile(path string) (*AnalysisOutput, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// AddLoan records a loan; used by tests and by callers building output in code.
func (o *AnalysisOutput) AddLoan(key LoanKey, point CharRange, region Region) {
	o.LoanPoints.Set(key, point)
	o.LoanRegions.Set(key, region)
}

// AddMove records a move.
func (o *AnalysisOutput) AddMove(key MoveKey, point CharRange, region Region) {
	o.MovePoints.Set(key, point)
	o.MoveRegions.Set(key, region)
}

// Len returns the number of entities over both namespaces.
func (o *AnalysisOutput) Len() int {
	if o == nil {
		return 0
	}
	return len(o.LoanKeys()) + len(o.MoveKeys())
}

// LoanKeys returns every loan key once: keys with a region in region order,
// then keys that only have a point, in point order.
func (o *AnalysisOutput) LoanKeys() []LoanKey {
	return entityKeys(&o.LoanRegions, &o.LoanPoints)
}

// MoveKeys is LoanKeys for moves.
func (o *AnalysisOutput) MoveKeys() []MoveKey {
	return entityKeys(&o.MoveRegions, &o.MovePoints)
}

func entityKeys[K ~string, R, P any](regions *OrderedMap[K, R], points *OrderedMap[K, P]) []K {
	keys := regions.Keys()
	for _, k := range points.Keys() {
		if _, ok := regions.Get(k); !ok {
			keys = append(keys, k)
		}
	}
	return keys
}
