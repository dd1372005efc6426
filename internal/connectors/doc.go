// Package connectors contains source adapter implementations.
//
// Each subpackage implements driven.SourceAdapter for one source kind
// and owns everything provider-specific: HTTP, pagination, rate
// limits, cursor interpretation. The reconciliation engine never sees
// any of it.
package connectors
