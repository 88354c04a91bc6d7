// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package prefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/goccy/go-json"

	"github.com/griddeck/griddeck/core/logger"
)

// S3Configuration contains the configuration for the S3 preference store.
// Credentials come from configuration, which in turn reads them from the
// environment.
type S3Configuration struct {
	AWSBucketName string
	AWSRegion     string
	AccessID      string
	AccessKey     string
	KeyPrefix     string
}

// S3Store keeps preferences as JSON objects in an S3 bucket, one object per
// key. It is meant for multi-instance deployments without a database.
type S3Store struct {
	config aws.Config
	bucket string
	prefix string
}

var _ Store = S3Store{}

// NewS3Store returns a new S3Store.
func NewS3Store(s3Config S3Configuration) (S3Store, error) {
	if s3Config.AWSBucketName == "" {
		return S3Store{}, fmt.Errorf("AWSBucketName must not be empty")
	}

	cfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion(s3Config.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3Config.AccessID, s3Config.AccessKey, "")),
	)
	if err != nil {
		return S3Store{}, err
	}
	logger.Default().Debugln("S3 preference store enabled")
	return S3Store{config: cfg, bucket: s3Config.AWSBucketName, prefix: s3Config.KeyPrefix}, nil
}

func (s S3Store) objectKey(key string) string {
	return s.prefix + key + ".json"
}

// Read reads a value. The timestamp is the object's last-modified time; a
// missing object yields a zero timestamp and no error.
func (s S3Store) Read(ctx context.Context, key string, value interface{}) (time.Time, error) {
	var timestamp time.Time
	client := s3.NewFromConfig(s.config)

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return timestamp, nil
		}
		return timestamp, err
	}
	if head.LastModified != nil {
		timestamp = head.LastModified.UTC()
	}

	downloader := manager.NewDownloader(client)
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err = downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return timestamp, fmt.Errorf("cannot read key '%s': %s", key, err.Error())
	}
	err = json.Unmarshal(buf.Bytes(), &value)
	return timestamp, err
}

// Write writes a value.
func (s S3Store) Write(ctx context.Context, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	uploader := manager.NewUploader(s3.NewFromConfig(s.config))
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload key '%s', %v", key, err)
	}
	return nil
}

// Delete deletes a value.
func (s S3Store) Delete(ctx context.Context, key string) error {
	client := s3.NewFromConfig(s.config)
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	return err
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
