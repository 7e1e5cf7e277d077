// Package messaging is the chat transport the coordinator talks to.
//
// Messenger is the narrow surface the workflow depends on: fetch the user's
// video into a staging path and push progress, documents and error notices
// to a delivery target. Gateway implements it for the HTTP chat gateway by
// keeping a bounded, sequenced event log per target that clients poll or
// receive over a websocket, plus an inbox for uploaded videos.
package messaging
