package models

import "time"

// HypervisorKind 虚拟化平台类型
type HypervisorKind string

const (
	KindHyperV HypervisorKind = "hyperv"
	KindPVE    HypervisorKind = "pve" // Proxmox VE 节点/集群
	KindPDM    HypervisorKind = "pdm" // Proxmox Datacenter Manager
)

// Valid 检查平台类型是否合法
func (k HypervisorKind) Valid() bool {
	switch k {
	case KindHyperV, KindPVE, KindPDM:
		return true
	}
	return false
}

// DefaultPort 各平台管理端口的默认值
func (k HypervisorKind) DefaultPort() int {
	switch k {
	case KindHyperV:
		return 5985
	case KindPVE:
		return 8006
	case KindPDM:
		return 8443
	}
	return 0
}

// AuthPolicy 认证方式
type AuthPolicy string

const (
	AuthCurrentUser AuthPolicy = "current-user" // 当前用户(Negotiate, 仅主机名目标)
	AuthPassword    AuthPolicy = "password"     // 用户名+密码
	AuthAPIToken    AuthPolicy = "api-token"    // Proxmox API Token
)

// HostRecord 连接历史中的一条主机记录
// 敏感字段以 ENC: 前缀的密文存储,明文永远不落盘
type HostRecord struct {
	Address           string         `yaml:"address"`
	Kind              HypervisorKind `yaml:"type"`
	LastConnectedAt   time.Time      `yaml:"last_connected_at"`
	UseCurrentUser    bool           `yaml:"use_current_user"`
	Username          string         `yaml:"username,omitempty"`
	EncryptedPassword string         `yaml:"password,omitempty"`
}

// GroupRecord 主机组,组内主机共享认证配置
// 一个地址最多属于一个组(加入新组时自动从旧组移除)
type GroupRecord struct {
	Name            string         `yaml:"name"`
	Kind            HypervisorKind `yaml:"type"`
	Auth            AuthPolicy     `yaml:"auth"`
	Username        string         `yaml:"username,omitempty"`
	EncryptedSecret string         `yaml:"secret,omitempty"`
	Port            int            `yaml:"port,omitempty"`
	Hosts           []string       `yaml:"hosts"`
}

// HasHost 检查地址是否在组内
func (g *GroupRecord) HasHost(address string) bool {
	for _, h := range g.Hosts {
		if h == address {
			return true
		}
	}
	return false
}

// RemoveHost 从组内移除地址,返回是否发生了移除
func (g *GroupRecord) RemoveHost(address string) bool {
	for i, h := range g.Hosts {
		if h == address {
			g.Hosts = append(g.Hosts[:i], g.Hosts[i+1:]...)
			return true
		}
	}
	return false
}

// Credential 解密后的认证信息,仅存在于内存中
type Credential struct {
	Username string
	Secret   string // 密码或 API Token 值
}

// ConnectedHost 运行时的已连接主机,不持久化
type ConnectedHost struct {
	Address     string
	Kind        HypervisorKind
	Credential  *Credential // 采集时使用的认证信息,当前用户模式下为 nil
	VMCount     int
	Nodes       []string // PVE: 集群节点名; PDM: remote 名; Hyper-V: 主机名
	ConnectedAt time.Time
}

// OwnsNode 判断一个 VMRecord.HostName 是否归属于该主机
func (c *ConnectedHost) OwnsNode(name string) bool {
	if name == c.Address {
		return true
	}
	for _, n := range c.Nodes {
		if n == name {
			return true
		}
	}
	return false
}

// VMRecord 归一化后的虚拟机记录,所有平台共用同一结构
type VMRecord struct {
	Platform     string // "Hyper-V" / "Proxmox VE" / "Proxmox PDM"
	HostName     string // 所属主机/节点标识,必须能回溯到某个 ConnectedHost
	HostCPU      string
	HostMemoryGB string
	HostVersion  string
	VMName       string
	State        string
	CPUCount     int
	MemoryMB     int64
	Uptime       string
	Generation   string // Hyper-V 代数 / "KVM"
	DynamicMem   bool
	NICs         string // "name [switch, MAC, IPs]" 以 "; " 连接
	Disks        string // "controller#index: path (size, used)" 以 "; " 连接
	Checkpoints  string // 检查点/快照名列表,无则为 "None"
	Integration  string // 集成服务版本 / guest agent 说明
}

// VMRecordHeader CSV 导出和表格展示使用的列名,顺序固定
var VMRecordHeader = []string{
	"Platform", "HostName", "HostCPU", "HostMemoryGB", "HostVersion",
	"VMName", "State", "CPUCount", "MemoryMB", "Uptime", "Generation",
	"DynamicMemory", "NICs", "Disks", "Checkpoints", "IntegrationServices",
}
