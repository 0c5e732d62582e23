package upload

import "context"

// Uploader uploads a report bundle to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadFiles uploads the given files under the bundle's key prefix.
	UploadFiles(ctx context.Context, bundleName string, paths []string) error

	// ListBundles returns the names of bundles already uploaded.
	ListBundles(ctx context.Context) ([]string, error)
}
