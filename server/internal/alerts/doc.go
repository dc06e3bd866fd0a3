// Package alerts evaluates threshold rules against each fresh session
// analysis and delivers webhook notifications to Slack, Teams or a generic
// HTTP endpoint when a rule fires or resolves.
package alerts
