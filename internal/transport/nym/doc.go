// Package nym implements the mixnet transport collaborator against a local
// mixnet daemon's websocket interface. The daemon owns all anonymization
// concerns (routing, SURBs); this package only frames payloads in and parses
// received envelopes out.
package nym
