package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateURLToken 生成 URL-safe 的随机 token，长度约为 4/3*n 字符
// n 为原始随机字节数，推荐 24 或 32
func GenerateURLToken(n int) (string, error) {
	if n <= 0 {
		n = 24
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// 使用 RawURLEncoding，避免出现 '=' 填充与 '+' '/' 字符
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateID 生成带前缀的随机标识，例如 cus_k3j9x2...
// n 为随机部分的字符数
func GenerateID(prefix string, n int) (string, error) {
	if n <= 0 {
		n = 14
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(prefix) + n)
	sb.WriteString(prefix)
	for _, c := range b {
		sb.WriteByte(alphanumeric[int(c)%len(alphanumeric)])
	}
	return sb.String(), nil
}
