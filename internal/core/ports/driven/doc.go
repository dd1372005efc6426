// Package driven defines the outbound ports of the ingestion core:
// the source adapter capability and the persistence interfaces the
// reconciliation engine depends on. Implementations live under
// internal/adapters/driven.
package driven
