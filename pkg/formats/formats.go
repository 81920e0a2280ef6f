// Package formats provides parsers for RMesh room geometry files.
package formats

// Note: RMesh (room mesh) is implemented in rmesh.go, its byte cursor in reader.go
