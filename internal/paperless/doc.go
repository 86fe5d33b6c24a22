// SPDX-License-Identifier: MIT

// Package paperless is a client for the Paperless-ngx REST API.
//
// A Session is opened against the configured instance, negotiates the API
// version and then exposes typed list, lookup, create and update operations
// for the objects the automation touches. Requests are rate limited, retried
// when idempotent, traced and guarded by a circuit breaker.
package paperless
