// Package pipeline turns a full-precision GGUF file into a published set of
// quantized artifacts. It is structured into small files by concern:
//
//   - pipeline.go: Pipeline type, Options, Run and the single-stage entry points.
//   - resolve.go: locating the source weights.
//   - quantize.go: Quantizer (one external invocation per level, worker pool,
//     skip-if-exists, artifact validation and header inspection).
//   - checksum.go: SHA256SUMS writing, reading and verification.
//   - errors.go: error types, IsXxx helpers and the Kind classifier.
//   - events.go: EventPublisher, noop, log and in-memory publishers.
//
// Stages run in a fixed order and stop at the first error: resolve, quantize,
// checksum, docs, publish. The source file is located before anything is
// written, so a missing input leaves no output behind.
package pipeline
