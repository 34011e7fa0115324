// Package dynamo is a goVerify.AuditSink that writes audit events to a
// DynamoDB table, one item per event keyed by event id.
//
// # Architecture boundaries
//
// The sink talks to DynamoDB through [PutItemAPI], which *dynamodb.Client
// satisfies. Items are marshalled with attributevalue from [Record].
//
// # What this package must NOT do
//
//   - Block the audit dispatcher beyond the per-write timeout.
//   - Return write failures to the engine. They are logged and counted.
package dynamo
