// utils/archive.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

var r2Client *s3.Client
var r2Bucket string

// InitR2 wires the Cloudflare R2 client used for the webhook payload
// archive. Archiving is optional: with no R2_BUCKET_NAME configured the
// archive is disabled and ArchivePayload becomes a no-op.
func InitR2() error {
	r2Bucket = os.Getenv("R2_BUCKET_NAME")
	if r2Bucket == "" {
		log.Println("⚠️  R2_BUCKET_NAME not set — webhook payload archive disabled")
		return nil
	}

	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load R2 config: %w", err)
	}

	r2Client = s3.NewFromConfig(cfg)
	return nil
}

// ArchivePayload stores one verified raw webhook delivery for audit, keyed
// by repository slug and delivery id. Best effort: failures are logged and
// never surfaced to webhook processing.
func ArchivePayload(repoFullName, deliveryID string, body []byte) {
	if r2Client == nil || deliveryID == "" {
		return
	}

	key := fmt.Sprintf("webhooks/%s/%s.json", slug.Make(repoFullName), deliveryID)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := r2Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r2Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Printf("⚠️ [ARCHIVE] Failed to archive delivery %s: %v", deliveryID, err)
		return
	}
	log.Printf("📦 [ARCHIVE] Stored delivery %s at %s", deliveryID, key)
}
