// Package core provides the CSV bulk-import pipeline for PandaHoHo content.
//
// This package contains the import logic independent of any transport. It
// is used by the HTTP server, the importctl CLI and tests without
// modification.
//
// # Pipeline
//
// Data flows strictly forward:
//
//	bytes -> ResolveEncoding -> ParseRows -> ValidateRows -> transform -> BulkClient
//
// A [Pipeline] bundles the per-target configuration (template, required
// columns, row check, transformer) for an explicit domain type:
//
//	p := &core.Pipeline[domain.City]{
//	    RequiredColumns: []string{"name", "province"},
//	    ValidateRow:     checkCity,
//	    TransformRow:    toCity,
//	}
//	switch out := p.Run(raw).(type) {
//	case core.Ready[domain.City]:
//	    // submittable
//	case core.Invalid[domain.City]:
//	    // preview only
//	case core.Unusable[domain.City]:
//	    // decode or parse failure
//	}
//
// Only [Ready] can be passed to [BulkClient.Send], so records with errors
// cannot reach the bulk endpoint.
//
// # Sessions
//
// A [Session] is the state machine behind one import modal. It keeps the
// outcome of the selected file, drives submission with a timeout and
// cancellation, and retries a failed submission without re-reading the file.
//
// # Targets
//
// [Definition] erases the domain type so transports can look targets up by
// key in a [Registry].
//
// # Error Handling
//
// Decode, parse, validation and transform problems are returned as data
// ([ValidationError], [Diagnostic]); only submission returns an error.
// Technical errors are mapped to user-facing messages with [MapError]; see
// error_messages.go for the code reference.
package core
