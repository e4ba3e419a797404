package minio

import (
	"Switchboard/internal/api/config"
	"context"
	"fmt"
	log "log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

const lifecycleRuleID = "DraftAutoDeleteRule"

// NewClient 初始化 MinIO 客户端，并确保草稿桶存在且带 1 天过期策略
func NewClient(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.TempBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to minio server: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.TempBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.TempBucket, err)
		}
	}

	if err = ensureLifecycle(ctx, client, cfg.TempBucket); err != nil {
		return nil, err
	}
	return client, nil
}

func ensureLifecycle(ctx context.Context, client *minio.Client, bucket string) error {
	lcConfig, err := client.GetBucketLifecycle(ctx, bucket)
	if err != nil {
		lcConfig = lifecycle.NewConfiguration()
	}

	const targetDays = 1
	for _, rule := range lcConfig.Rules {
		// 状态开启 + 全桶匹配 + 过期天数为1
		if rule.Status == "Enabled" &&
			rule.Expiration.Days == targetDays &&
			rule.RuleFilter.Prefix == "" {
			log.Info("检测到已存在兼容的过期策略", "bucket", bucket, "ruleID", rule.ID)
			return nil
		}
	}

	lcConfig.Rules = append(lcConfig.Rules, lifecycle.Rule{
		ID:         lifecycleRuleID,
		Status:     "Enabled",
		Expiration: lifecycle.Expiration{Days: targetDays},
	})
	if err = client.SetBucketLifecycle(ctx, bucket, lcConfig); err != nil {
		return fmt.Errorf("设置生命周期失败: %w", err)
	}
	log.Info("已自动补全草稿桶的 1 天过期策略", "bucket", bucket)
	return nil
}
