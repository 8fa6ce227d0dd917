// Package observability provides OpenTelemetry spans and metrics for the
// query pipeline.
//
// Everything is opt-in: without providers the no-op implementations are
// used.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	TracerName = "github.com/roach88/causalrt"
	MeterName  = "github.com/roach88/causalrt"
)

// Pipeline attribute keys.
const (
	AttrRunID       = "causalrt.run_id"
	AttrBackend     = "causalrt.backend"
	AttrPreferred   = "causalrt.backend.preferred"
	AttrStage       = "causalrt.stage"
	AttrFingerprint = "causalrt.ir.fingerprint"
	AttrNodeKinds   = "causalrt.ir.kinds"
	AttrRowCount    = "causalrt.result.rows"
	AttrPlugin      = "causalrt.plugin"
	AttrErrorKind   = "causalrt.error.kind"
	AttrOutcome     = "causalrt.outcome"
)

// Stage names.
const (
	StageParse    = "parse"
	StagePlan     = "plan"
	StageLower    = "lower"
	StageExecute  = "execute"
	StageExtract  = "extract"
	StageEstimate = "estimate"
)

func RunIDAttr(id string) attribute.KeyValue        { return attribute.String(AttrRunID, id) }
func BackendAttr(tag string) attribute.KeyValue     { return attribute.String(AttrBackend, tag) }
func PreferredAttr(pref string) attribute.KeyValue  { return attribute.String(AttrPreferred, pref) }
func StageAttr(stage string) attribute.KeyValue     { return attribute.String(AttrStage, stage) }
func FingerprintAttr(fp string) attribute.KeyValue  { return attribute.String(AttrFingerprint, fp) }
func NodeKindsAttr(kinds string) attribute.KeyValue { return attribute.String(AttrNodeKinds, kinds) }
func RowCountAttr(n int) attribute.KeyValue         { return attribute.Int(AttrRowCount, n) }
func PluginAttr(name string) attribute.KeyValue     { return attribute.String(AttrPlugin, name) }
func ErrorKindAttr(kind string) attribute.KeyValue  { return attribute.String(AttrErrorKind, kind) }
func OutcomeAttr(outcome string) attribute.KeyValue { return attribute.String(AttrOutcome, outcome) }
