// Package registry provides the known-domain registry used to classify
// tracker evidence.
//
// A Registry maps a domain to a model.DomainRecord (company, category, risk
// level, GDPR/CCPA relevance). Lookups try the exact domain first and then
// walk up parent domains (sub.doubleclick.net → doubleclick.net), stopping
// before a public suffix so that a record can never match "co.uk" or "net".
//
// A Registry is built once per batch and never mutated afterwards, so it is
// safe for concurrent readers without locking.
package registry
