// Package alerts implements maintenance alert rules over failure projections.
// Each projection is reduced to a Snapshot and tested against the configured
// rules; fired and resolved alerts are delivered to Slack, Teams, or generic
// HTTP webhooks.
package alerts
