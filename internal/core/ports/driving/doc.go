// Package driving defines the inbound ports of the ingestion core:
// the operations external collaborators (CLI, scheduler) call.
package driving
