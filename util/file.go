package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaos-io/tryon/tryon"
)

// LoadSource 命令行参数转图片来源：http/https/data URL 原样交给引擎，其余当作本地文件读取
func LoadSource(arg string) (tryon.Source, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "data:") {
		return tryon.FromURL(arg), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return tryon.Source{}, fmt.Errorf("read image %s: %w", arg, err)
	}
	return tryon.FromBytes(data), nil
}

// WriteFile 写文件，目录不存在时先创建
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
