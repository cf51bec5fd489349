package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

type LocalArchive struct {
	basePath string
}

func NewLocalArchive(basePath string) (*LocalArchive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("创建归档目录失败: %w", err)
	}
	return &LocalArchive{basePath: basePath}, nil
}

func (s *LocalArchive) Save(key string, data []byte) (string, error) {
	fullPath := filepath.Join(s.basePath, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("写入归档文件失败: %w", err)
	}

	util.Logger.Info("回调报文归档成功", zap.String("path", fullPath))
	return key, nil
}
