// Package uploader defines the object-storage capability (C6): upload
// a single file, an in-memory buffer, or a whole local directory tree
// to a remote prefix. The only concrete implementation in this
// repository is pkg/uploader/s3, backed by github.com/aws/aws-sdk-go.
package uploader

import "context"

// Backend is the capability a snapshot destination must supply.
type Backend interface {
	// UploadFile uploads the file at localPath to remotePath.
	UploadFile(ctx context.Context, localPath, remotePath string) error

	// UploadBuffer uploads data directly to remotePath without
	// touching the local filesystem.
	UploadBuffer(ctx context.Context, data []byte, remotePath string) error

	// UploadFolder walks localRoot recursively and uploads every
	// regular file to remoteRoot joined with that file's path relative
	// to localRoot. Upload ordering is unobserved by callers —
	// implementations are free to parallelize.
	UploadFolder(ctx context.Context, localRoot, remoteRoot string) error
}
