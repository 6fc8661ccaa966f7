// Package messaging publishes and consumes messages without tying callers to
// a broker. The in-memory driver serves single-process deployments and tests;
// NATS, NSQ, Kafka and Google Pub/Sub drivers share the same contract.
//
// The correlation id of the publishing context travels as a message header and
// is restored into the handler context on the consuming side.
package messaging
