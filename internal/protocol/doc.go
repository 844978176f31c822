// Package protocol defines the envelope tags, request documents, and content
// shapes exchanged with the directory server. Field names are wire-frozen:
// changing any of them breaks interoperability with deployed servers.
package protocol
