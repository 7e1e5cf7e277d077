// Package api serves the HTTP chat gateway.
//
// The gateway plays the messaging transport for chat clients: it accepts
// video submissions (multipart upload or a JSON video_url), answers bot
// commands and exposes each delivery target's event log by polling and
// over a websocket. Requests identify their owner with X-Owner-ID and
// their delivery target with X-Target-ID, which defaults to the owner.
//
// # Routes
//
//	GET  /health
//	POST /api/jobs
//	GET  /api/jobs?prefix=
//	POST /api/jobs/cancel?prefix=
//	POST /api/commands
//	GET  /api/targets/:target/events?since=
//	GET  /api/targets/:target/documents/:seq
//	GET  /ws/targets/:target
//
// When gateway.api_token is set every route except /health requires
// "Authorization: Bearer <token>"; websocket clients may pass ?token=.
package api
