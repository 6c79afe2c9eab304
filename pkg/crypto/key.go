package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeySize    = 32 // AES-256 需要 32 字节密钥
	kdfRounds  = 4096
	kdfContext = "vtool-credential-key"
)

// LoadOrGenerateKey 尝试从指定路径加载密钥材料并派生出最终密钥
// 如果文件不存在,会自动生成一个新的随机密钥并保存,权限设置为 0600
//
// 最终密钥 = PBKDF2(密钥文件内容, salt=当前OS用户名)
// 这样即使密钥文件被复制到其他用户下,旧密文也无法解开,
// 等价于宿主系统按用户隔离的凭据保护
func LoadOrGenerateKey(path string) ([]byte, error) {
	seed, err := os.ReadFile(path)
	if err != nil {
		// 如果错误不是"文件不存在",则直接返回错误
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}

		seed = make([]byte, KeySize)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("failed to generate random key: %w", err)
		}

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}

		// 仅所有者可读写
		if err := os.WriteFile(path, seed, 0600); err != nil {
			return nil, fmt.Errorf("failed to save key file: %w", err)
		}
	} else if len(seed) != KeySize {
		return nil, fmt.Errorf("invalid key file size in '%s': expected %d, got %d", path, KeySize, len(seed))
	}

	return DeriveUserKey(seed, currentUsername()), nil
}

// DeriveUserKey 由密钥材料和用户名派生出用户作用域的密钥
func DeriveUserKey(seed []byte, username string) []byte {
	salt := []byte(kdfContext + ":" + username)
	return pbkdf2.Key(seed, salt, kdfRounds, KeySize, sha256.New)
}

func currentUsername() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
