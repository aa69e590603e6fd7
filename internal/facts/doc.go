// Package facts indexes the output of the borrow analysis for rendering.
//
// # Input
//
// AnalysisOutput mirrors the JSON produced by the analysis engine. Each
// namespace (loans, moves) contributes two maps keyed by an opaque entity
// key: the triggering point (a borrow or a move) and the region over which
// its effect is visible. Keys are decoded in document order.
//
// # Output
//
// Generate walks every entity once and returns:
//
//   - AnalysisFacts – the index from entity key to its point tag and region
//     tag, per namespace. It is built once per analysis run and never
//     mutated afterwards; the visibility layer reads it.
//   - []ActionFacts – one render-ready record per entity, carrying both tags,
//     the point and the full region. The renderer turns these into
//     decorations.
//
// Both values come from the same pass, so the index and the rendered
// decorations always agree.
//
// Facts themselves are never validated here: offsets are trusted to match
// the document the analysis ran on.
package facts
