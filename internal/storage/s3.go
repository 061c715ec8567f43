package storage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tabletop-backend/internal/config"
)

// ObjectLister S3 ListObjectsV2 (테스트에서 교체 가능)
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Catalog S3 버킷 prefix 아래 객체로 에셋 목록 생성 (hash 는 ETag)
type S3Catalog struct {
	client ObjectLister
	bucket string
	prefix string
}

// NewS3Catalog 설정으로 S3 클라이언트 생성
func NewS3Catalog(ctx context.Context, cfg config.S3Config) (*S3Catalog, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	log.Printf("✅ [Assets] S3 catalog ready (bucket: %s, prefix: %s)", cfg.BucketName, cfg.Prefix)
	return NewS3CatalogWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.Prefix), nil
}

// NewS3CatalogWithClient 클라이언트 주입 생성자
func NewS3CatalogWithClient(client ObjectLister, bucket, prefix string) *S3Catalog {
	return &S3Catalog{client: client, bucket: bucket, prefix: prefix}
}

// List 페이지네이션으로 전체 객체 조회
func (c *S3Catalog) List(ctx context.Context) (AssetList, error) {
	list := AssetList{FilesKey: []AssetFile{}}
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", c.bucket, c.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			list.insert(strings.TrimPrefix(key, c.prefix), strings.Trim(aws.ToString(obj.ETag), `"`))
		}
	}
	return list, nil
}
