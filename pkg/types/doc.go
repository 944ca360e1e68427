// Package types defines the wire structures of the asynchronous geoprocessing job protocol.
//
// This package contains the types exchanged with the analysis server,
// including:
//   - Job statuses and their terminal classification
//   - Severity-tagged progress messages
//   - Job status snapshots and the results descriptor
//   - Output parameter value envelopes
//   - The server error envelope
package types
