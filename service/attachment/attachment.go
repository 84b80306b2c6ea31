// Package attachment resolves stored file references into short-lived
// presigned URLs so the model can fetch attached images directly.
package attachment

import (
	"context"
	"converse-backend/config"
	"converse-backend/model"
	"fmt"
	"log/slog"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
)

const presignExpiration = 15 * time.Minute

var client *oss.Client

func Init() {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	client = oss.NewClient(cfg)
}

func PresignURL(ctx context.Context, objectName string) (string, error) {
	if client == nil {
		return "", fmt.Errorf("attachment service not initialized")
	}

	result, err := client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
	}, oss.PresignExpires(presignExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %v", objectName, err)
	}

	return result.URL, nil
}

// ResolveImageURLs maps file references to presigned URLs, skipping any
// that fail to resolve.
func ResolveImageURLs(ctx context.Context, refs []model.FileRef) []string {
	var urls []string
	for _, ref := range refs {
		url, err := PresignURL(ctx, ref.ObjectName)
		if err != nil {
			slog.Error("Failed to resolve attachment",
				"object_name", ref.ObjectName,
				"err", err,
			)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}
