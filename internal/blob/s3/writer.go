package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ndjsonContentType is the media type of every archive object.
const ndjsonContentType = "application/x-ndjson"

// multipartPartSize is the part size for large batch uploads. 8 MiB clears
// the S3 minimum of 5 MiB with headroom.
const multipartPartSize int64 = 8 * 1024 * 1024

// Writer uploads archive objects into the client's bucket.
type Writer struct {
	c *Client
}

// NewWriter returns a Writer over c's bucket.
func NewWriter(c *Client) *Writer { return &Writer{c: c} }

// Put uploads one object in a single request.
func (w *Writer) Put(ctx context.Context, key string, body io.Reader) error {
	_, err := w.c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ndjsonContentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put %s: %w", key, err)
	}
	return nil
}

// PutMultipart uploads one object through the SDK upload manager, which
// splits the body into parts and uploads them concurrently.
func (w *Writer) PutMultipart(ctx context.Context, key string, body io.Reader) error {
	uploader := manager.NewUploader(w.c.s3, func(u *manager.Uploader) {
		u.PartSize = multipartPartSize
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ndjsonContentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart put %s: %w", key, err)
	}
	return nil
}
