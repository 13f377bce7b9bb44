// Package entities holds the log metadata and event types shared by the
// engine, the export surface and the host clients.
package entities
