package encoding

import "strings"

// NormalizePath converts backslashes to forward slashes.
// RMesh files are authored on Windows and store paths like "GFX\map\wall.jpg".
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// BaseFilename returns the file name of path without directory and extension.
// Both '/' and '\' are treated as separators.
func BaseFilename(path string) string {
	path = NormalizePath(path)
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		path = path[idx+1:]
	}
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		path = path[:idx]
	}
	return path
}

// TextureKey returns the case-insensitive lookup key for a texture path.
func TextureKey(path string) string {
	return strings.ToLower(BaseFilename(path))
}
