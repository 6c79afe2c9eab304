package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ReadHostFile 逐行读取主机列表文件
// 空行和空白被忽略,# 开头的行当注释跳过
func ReadHostFile(path string) ([]string, error) {
	var hosts []string
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开主机列表文件: %v", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	reg := regexp.MustCompile(`\s`)
	for {
		line, err := reader.ReadString('\n')
		line = reg.ReplaceAllString(line, "")
		if line != "" && !strings.HasPrefix(line, "#") {
			hosts = append(hosts, line)
		}
		if err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("读取主机列表文件失败: %v", err)
			}
			break
		}
	}

	if len(hosts) == 0 {
		return nil, fmt.Errorf("主机列表文件中没有找到有效的主机")
	}
	return hosts, nil
}
