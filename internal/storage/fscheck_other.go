//go:build !darwin && !linux

package storage

// Other platforms cannot be inspected; treat them as local.
func detectFilesystemType(string) (string, error) {
	return "local", nil
}
