// Package publish announces finished scan results on an Amazon SQS queue
// so that downstream consumers (dashboards, alerting) can react to them.
//
// Every message carries a random ID. Results published together by
// PublishAll also share a batch ID.
package publish
