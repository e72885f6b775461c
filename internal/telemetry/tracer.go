package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for ptnet-mgr spans, named after the wire vocabulary they
// come from (spec §4.1: node address, information element type identifier,
// cause of transmission) plus the supervisor's per-connection correlation id.
const (
	AttrAddress   = "ptnet.address"
	AttrTI        = "ptnet.ti"
	AttrCOT       = "ptnet.cot"
	AttrSessionID = "ptnet.session_id"
	AttrNodeCount = "ptnet.node_count"
)

// Address returns an attribute for a node's 6-byte address, formatted the
// same way NodeAddress.String() does (hex bytes separated by colons).
func Address(addr string) attribute.KeyValue {
	return attribute.String(AttrAddress, addr)
}

// TI returns an attribute for a wire type identifier.
func TI(ti int) attribute.KeyValue {
	return attribute.Int(AttrTI, ti)
}

// COT returns an attribute for a cause-of-transmission value.
func COT(cot int) attribute.KeyValue {
	return attribute.Int(AttrCOT, cot)
}

// SessionID returns an attribute for the supervisor's per-connection
// correlation id.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// NodeCount returns an attribute for the number of nodes a pass covers.
func NodeCount(n int) attribute.KeyValue {
	return attribute.Int(AttrNodeCount, n)
}

// StartNodeScanSpan starts a span for one NodeScan pass (spec §4.5), tagged
// with the number of nodes the pass is about to interrogate.
func StartNodeScanSpan(ctx context.Context, nodeCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, "nodescan.pass", trace.WithAttributes(NodeCount(nodeCount)))
}

// StartReconcileSpan starts a span for one external-model reconcile pass
// (spec §4.8), tagged with the size of the desired node set.
func StartReconcileSpan(ctx context.Context, nodeCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, "reconcile.pass", trace.WithAttributes(NodeCount(nodeCount)))
}
