package facts

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// ErrMissingPoint is returned when a region has no matching point.
var ErrMissingPoint = errors.New("region without point")

// TagSource hands out fresh tags. *tag.Session implements it.
type TagSource interface {
	Next() string
}

// AnalysisFacts maps every entity key to the tags of its rendered point and
// region. It is immutable once Generate returns.
type AnalysisFacts struct {
	Session     string             `json:"session" msgpack:"session"`
	LoanPoints  map[LoanKey]string `json:"loan_points" msgpack:"loan_points"`
	LoanRegions map[LoanKey]string `json:"loan_regions" msgpack:"loan_regions"`
	MovePoints  map[MoveKey]string `json:"move_points" msgpack:"move_points"`
	MoveRegions map[MoveKey]string `json:"move_regions" msgpack:"move_regions"`
}

// ActionFacts is the unit of rendering work for one loan or move.
type ActionFacts struct {
	Namespace    Namespace `json:"namespace" msgpack:"ns"`
	Key          string    `json:"key" msgpack:"key"`
	RefinerTag   string    `json:"refiner_tag" msgpack:"pt"`
	RegionTag    string    `json:"region_tag" msgpack:"rt"`
	RefinerPoint CharRange `json:"refiner_point" msgpack:"point"`
	Region       Region    `json:"region" msgpack:"region"`
}

// Generate tags every loan and move of out and returns the index together
// with one record per entity. Loans come first, then moves, each in the
// input's key order (see LoanKeys). A key with a point and no region gets
// an empty region. For every entity the point tag is drawn before the
// region tag.
func Generate(out *AnalysisOutput, tags TagSource) (*AnalysisFacts, []ActionFacts, error) {
	loans, moves := out.LoanKeys(), out.MoveKeys()
	af := &AnalysisFacts{
		Session:     uuid.NewString(),
		LoanPoints:  make(map[LoanKey]string, len(loans)),
		LoanRegions: make(map[LoanKey]string, len(loans)),
		MovePoints:  make(map[MoveKey]string, len(moves)),
		MoveRegions: make(map[MoveKey]string, len(moves)),
	}
	records := make([]ActionFacts, 0, len(loans)+len(moves))

	for _, key := range loans {
		point, ok := out.LoanPoints.Get(key)
		if !ok {
			return nil, nil, fmt.Errorf("loan %q: %w", key, ErrMissingPoint)
		}
		region, _ := out.LoanRegions.Get(key)
		rec := tagRecord(tags, NamespaceLoan, string(key), point, region)
		af.LoanPoints[key] = rec.RefinerTag
		af.LoanRegions[key] = rec.RegionTag
		records = append(records, rec)
	}

	for _, key := range moves {
		point, ok := out.MovePoints.Get(key)
		if !ok {
			return nil, nil, fmt.Errorf("move %q: %w", key, ErrMissingPoint)
		}
		region, _ := out.MoveRegions.Get(key)
		rec := tagRecord(tags, NamespaceMove, string(key), point, region)
		af.MovePoints[key] = rec.RefinerTag
		af.MoveRegions[key] = rec.RegionTag
		records = append(records, rec)
	}

	return af, records, nil
}

func tagRecord(tags TagSource, ns Namespace, key string, point CharRange, region Region) ActionFacts {
	pointTag := tags.Next()
	regionTag := tags.Next()
	return ActionFacts{
		Namespace:    ns,
		Key:          key,
		RefinerTag:   pointTag,
		RegionTag:    regionTag,
		RefinerPoint: point,
		Region:       region,
	}
}

// Tags returns the point and region tags of an entity.
func (af *AnalysisFacts) Tags(ns Namespace, key string) (point, region string, ok bool) {
	if af == nil {
		return "", "", false
	}
	switch ns {
	case NamespaceLoan:
		point, ok = af.LoanPoints[LoanKey(key)]
		if ok {
			region = af.LoanRegions[LoanKey(key)]
		}
	case NamespaceMove:
		point, ok = af.MovePoints[MoveKey(key)]
		if ok {
			region = af.MoveRegions[MoveKey(key)]
		}
	}
	return point, region, ok
}

// Keys returns the sorted keys of a namespace.
func (af *AnalysisFacts) Keys(ns Namespace) []string {
	if af == nil {
		return nil
	}
	var out []string
	switch ns {
	case NamespaceLoan:
		out = make([]string, 0, len(af.LoanPoints))
		for k := range af.LoanPoints {
			out = append(out, string(k))
		}
	case NamespaceMove:
		out = make([]string, 0, len(af.MovePoints))
		for k := range af.MovePoints {
			out = append(out, string(k))
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of indexed entities.
func (af *AnalysisFacts) Len() int {
	if af == nil {
		return 0
	}
	return len(af.LoanPoints) + len(af.MovePoints)
}

// AllTags returns every tag in the index, points and regions.
func (af *AnalysisFacts) AllTags() []string {
	if af == nil {
		return nil
	}
	out := make([]string, 0, 2*af.Len())
	for _, t := range af.LoanPoints {
		out = append(out, t)
	}
	for _, t := range af.LoanRegions {
		out = append(out, t)
	}
	for _, t := range af.MovePoints {
		out = append(out, t)
	}
	for _, t := range af.MoveRegions {
		out = append(out, t)
	}
	return out
}
