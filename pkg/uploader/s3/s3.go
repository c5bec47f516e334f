// Package s3 implements the object-storage uploader against an
// S3-compatible endpoint using github.com/aws/aws-sdk-go. Directory
// walks use github.com/karrick/godirwalk for low-allocation traversal,
// and UploadFolder fans uploads out across a small bounded worker pool
// via golang.org/x/sync/errgroup.
package s3

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/karrick/godirwalk"
	"golang.org/x/sync/errgroup"

	"github.com/cuemby/statekeep/pkg/errs"
)

const (
	bucketName       = "state-manager-snapshots"
	defaultRegion    = "us-east-1"
	uploadConcurrent = 8
)

// Config holds the credentials and endpoint needed to reach the
// object store. Endpoint is optional — empty selects AWS's own S3.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// uploaderAPI is the subset of *s3manager.Uploader this package calls,
// narrowed to a local interface so tests can supply a fake instead of
// talking to a real endpoint.
type uploaderAPI interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Uploader is the S3-backed uploader.Backend implementation.
type Uploader struct {
	uploader uploaderAPI
	client   *s3.S3
	bucket   string
}

// New builds an Uploader from cfg. Credentials and endpoint resolution
// are the caller's concern — New expects them fully formed.
func New(cfg Config) (*Uploader, error) {
	awsCfg := aws.NewConfig().
		WithRegion(defaultRegion).
		WithS3ForcePathStyle(true)

	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(
			cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errs.New(errs.ObjectStoreError, "s3.New", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = bucketName
	}

	return &Uploader{
		uploader: s3manager.NewUploader(sess),
		client:   s3.New(sess),
		bucket:   bucket,
	}, nil
}

func (u *Uploader) UploadFile(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errs.New(errs.IoError, "s3.UploadFile", err)
	}
	defer f.Close()

	_, err = u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(remotePath),
		Body:   f,
	})
	if err != nil {
		return errs.New(errs.ObjectStoreError, "s3.UploadFile", err)
	}
	return nil
}

func (u *Uploader) UploadBuffer(ctx context.Context, data []byte, remotePath string) error {
	_, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(remotePath),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errs.New(errs.ObjectStoreError, "s3.UploadBuffer", err)
	}
	return nil
}

// UploadFolder walks localRoot with godirwalk and uploads every
// regular file found, fanning the uploads out across a bounded pool.
// The order files complete in is unobserved — callers only see the
// aggregate error, if any.
func (u *Uploader) UploadFolder(ctx context.Context, localRoot, remoteRoot string) error {
	var files []string
	err := godirwalk.Walk(localRoot, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsRegular() {
				files = append(files, path)
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return errs.New(errs.IoError, "s3.UploadFolder", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrent)

	for _, path := range files {
		path := path
		g.Go(func() error {
			rel, err := filepath.Rel(localRoot, path)
			if err != nil {
				return errs.New(errs.IoError, "s3.UploadFolder", err)
			}
			remotePath := filepath.ToSlash(filepath.Join(remoteRoot, rel))
			return u.UploadFile(gctx, path, remotePath)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}
