package testkit

import (
	"fmt"

	"aquascope/internal/facts"
)

// CheckFactInvariants verifies that an index and its records came from the
// same pass over out:
// 1) every input key is indexed exactly once, with a point and a region tag
// 2) there is exactly one record per key and it carries the indexed tags
// 3) every tag is distinct from every other tag
func CheckFactInvariants(out *facts.AnalysisOutput, af *facts.AnalysisFacts, records []facts.ActionFacts) error {
	if out == nil || af == nil {
		return fmt.Errorf("nil output or index")
	}
	if len(records) != out.Len() {
		return fmt.Errorf("record count %d != entity count %d", len(records), out.Len())
	}
	if af.Len() != out.Len() {
		return fmt.Errorf("index size %d != entity count %d", af.Len(), out.Len())
	}

	// 1) ключи
	for _, k := range out.LoanKeys() {
		if _, _, ok := af.Tags(facts.NamespaceLoan, string(k)); !ok {
			return fmt.Errorf("loan %q missing from index", k)
		}
	}
	for _, k := range out.MoveKeys() {
		if _, _, ok := af.Tags(facts.NamespaceMove, string(k)); !ok {
			return fmt.Errorf("move %q missing from index", k)
		}
	}

	// 2) записи
	seenKeys := make(map[string]struct{}, len(records))
	for i, rec := range records {
		id := rec.Namespace.String() + "/" + rec.Key
		if _, dup := seenKeys[id]; dup {
			return fmt.Errorf("record %d: duplicate entity %s", i, id)
		}
		seenKeys[id] = struct{}{}
		point, region, ok := af.Tags(rec.Namespace, rec.Key)
		if !ok {
			return fmt.Errorf("record %d: entity %s not indexed", i, id)
		}
		if point != rec.RefinerTag || region != rec.RegionTag {
			return fmt.Errorf("record %d: tags %s/%s disagree with index %s/%s", i, rec.RefinerTag, rec.RegionTag, point, region)
		}
	}

	// 3) уникальность тегов
	seenTags := make(map[string]struct{}, 2*len(records))
	for _, t := range af.AllTags() {
		if _, dup := seenTags[t]; dup {
			return fmt.Errorf("tag %q issued twice", t)
		}
		seenTags[t] = struct{}{}
	}
	return nil
}
