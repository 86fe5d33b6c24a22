// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors exported by the automation.
//
// Collectors are registered on the default registry. One-shot commands dump
// them with WriteTextfile; the watch server exposes them over HTTP.
package metrics

const namespace = "paperless_automation"
