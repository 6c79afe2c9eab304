package config

import (
	"github.com/wentf9/vtool/pkg/models"
)

const (
	// CurrentVersion 配置文件结构版本
	// v1: 仅 hosts 列表,没有 type 字段(当时只支持 Hyper-V)
	// v2: host 增加 type 字段,新增 groups 和 trusted_hosts
	CurrentVersion = 2

	// MaxHistory 连接历史上限,超出时淘汰最久未连接的记录
	MaxHistory = 20
)

// Configuration 对应 yaml 文件的顶层结构
type Configuration struct {
	Version      int                  `yaml:"version"`
	Hosts        []models.HostRecord  `yaml:"hosts"`
	Groups       []models.GroupRecord `yaml:"groups"`
	TrustedHosts []string             `yaml:"trusted_hosts"` // 允许按 IP 直连 WinRM 的白名单
}

// FindHost 按地址查找历史记录,返回索引,未找到返回 -1
func (c *Configuration) FindHost(address string) int {
	for i := range c.Hosts {
		if c.Hosts[i].Address == address {
			return i
		}
	}
	return -1
}

// FindGroup 按组名查找,未找到返回 nil
func (c *Configuration) FindGroup(name string) *models.GroupRecord {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return &c.Groups[i]
		}
	}
	return nil
}

// IsTrusted 检查地址是否在受信任主机白名单中
func (c *Configuration) IsTrusted(address string) bool {
	for _, h := range c.TrustedHosts {
		if h == address {
			return true
		}
	}
	return false
}

// AddTrusted 将地址加入受信任主机白名单
func (c *Configuration) AddTrusted(address string) {
	if !c.IsTrusted(address) {
		c.TrustedHosts = append(c.TrustedHosts, address)
	}
}
