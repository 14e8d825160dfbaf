package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Format is the rendering requested for an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Render renders shaped into the requested format.
func Render(s *Shaped, format Format) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		if err := WriteXLSX(&buf, s); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	case FormatCSV, "":
		if err := WriteCSV(&buf, s); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

// Uploader is the narrow slice of *manager.Uploader this module
// exercises, letting tests substitute a fake.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ToS3 renders shaped and streams it to bucket/key via an S3 upload
// manager, for "export to shared location" requests (§4.7.1, grounded
// in the teacher's S3/DuckDB-config plumbing and aws-sdk-go-v2).
func ToS3(ctx context.Context, uploader Uploader, bucket, key string, s *Shaped, format Format) (*manager.UploadOutput, error) {
	body, contentType, err := Render(s, format)
	if err != nil {
		return nil, err
	}
	return uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
}
