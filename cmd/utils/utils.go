package utils

import (
	"fmt"
	"net"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"
)

const (
	ConfigFileName = "config.yaml"
	ConfigKeyName  = "key"
)

// ParseHost 解析 host:port 格式的字符串
func ParseHost(input string) (string, int) {
	host := strings.TrimSpace(input)
	port := 0
	if atIndex := strings.LastIndex(host, ":"); atIndex != -1 {
		port = ParsePort(host[atIndex+1:])
		host = host[:atIndex]
	}
	return host, port
}

// ParsePort 解析端口字符串
// 如果输入为空或非法,则返回0
func ParsePort(input string) int {
	if input == "" {
		return 0
	}
	port64, err := strconv.ParseUint(input, 10, 16)
	if err != nil {
		return 0
	}
	return int(port64)
}

func GetCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		return ""
	}
	return currentUser.Username
}

// GetConfigFilePath 返回配置文件和密钥文件的路径
func GetConfigFilePath() (configPath, keyPath string) {
	user, err := user.Current()
	if err != nil {
		return "", ""
	}
	return filepath.Join(user.HomeDir, ".vtool", ConfigFileName), filepath.Join(user.HomeDir, ".vtool", ConfigKeyName)
}

// ReadPasswordFromTerminal 从终端安全地读取密码
func ReadPasswordFromTerminal(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // 打印换行符,因为 ReadPassword 不会打印换行符
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// IsValidIP 检查给定的字符串是否是有效的IPv4/IPv6地址
func IsValidIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	return ip != nil
}
