// Package courier provides an asynchronous delivery scheduler for SUNAT
// electronic documents.
//
// Courier is a library — not a service. Import it into your application to
// submit UBL XML documents and let the pipeline fetch, parse, route and
// deliver them to the tax authority, surviving every transient failure
// along the way.
//
// Key features:
//   - Full delivery state machine: send, ticket polling, CDR persistence
//   - Per-phase failure classification with recovery actions
//   - Exponential backoff retries with a bounded attempt budget
//   - Company and project level configuration with field-by-field fallback
//   - Composable store pattern with multiple backends (Postgres, MongoDB, Memory)
//   - Pluggable blob storage (S3, Minio, filesystem, memory) and job queue
//     (Redis, memory)
//
// Quick start:
//
//	c, err := courier.New(
//	    courier.WithStore(memoryStore),
//	    courier.WithBlobStore(blobStore),
//	    courier.WithGateway(sunatGateway),
//	    courier.WithQueue(jobQueue),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := c.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	doc, err := c.Submit(ctx, projectID, xmlPayload)
package courier
