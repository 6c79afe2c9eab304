package proxmox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wentf9/vtool/pkg/models"
	"github.com/wentf9/vtool/pkg/orchestrator"
	"github.com/wentf9/vtool/pkg/probe"
)

const PlatformVE = "Proxmox VE"

// IsUnauthorized 判断错误是否是 HTTP 401
// 401 多半是凭据或 token 格式问题,上层据此给出针对性提示
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 401
}

// IsTokenCredential Proxmox 的 API Token ID 里必有 "!"(user@realm!tokenname)
// 据此区分传进来的是 token 还是密码
func IsTokenCredential(cred *models.Credential) bool {
	return cred != nil && strings.Contains(cred.Username, "!")
}

// ClientFactory 测试时替换成指向 httptest 服务器的实现
type ClientFactory func(address string, port int, insecure bool) *Client

// VEAdapter Proxmox VE 适配器
// 现场几乎都是自签名证书,客户端固定跳过校验,但只影响自己的 Transport
type VEAdapter struct {
	Prober    probe.Prober
	NewClient ClientFactory
}

func NewVEAdapter() *VEAdapter {
	return &VEAdapter{Prober: probe.New(), NewClient: NewClient}
}

func (a *VEAdapter) Kind() models.HypervisorKind { return models.KindPVE }

// Probe 先 ICMP 后 API 端口
func (a *VEAdapter) Probe(ctx context.Context, address string, port int) error {
	if err := a.Prober.Ping(address); err != nil {
		return err
	}
	return a.Prober.Port(address, port)
}

type veSession struct {
	address string
	client  *Client
}

func (s *veSession) Address() string { return s.address }

// Authenticate 按凭据形态选择 token 或票据认证,并用一次 /version 验证
func (a *VEAdapter) Authenticate(ctx context.Context, address string, port int, cred *models.Credential) (orchestrator.Session, error) {
	if cred == nil {
		return nil, fmt.Errorf("Proxmox VE requires a username/password or an API token")
	}

	client := a.NewClient(address, port, true)
	if IsTokenCredential(cred) {
		client.UseToken(cred.Username, cred.Secret)
	} else {
		if err := client.Login(ctx, cred.Username, cred.Secret); err != nil {
			return nil, withAuthHint(err)
		}
	}

	// token 认证没有登录往返,这里主动打一次接口验证凭据
	var version struct {
		Version string `json:"version"`
	}
	if err := client.Get(ctx, "/version", &version); err != nil {
		return nil, withAuthHint(err)
	}

	return &veSession{address: address, client: client}, nil
}

// withAuthHint 401 基本都是凭据或 token 格式问题,附上排查提示
func withAuthHint(err error) error {
	if IsUnauthorized(err) {
		return fmt.Errorf("%w (检查用户名是否带 realm,或 API Token 是否为 user@realm!tokenid 加密钥的形式)", err)
	}
	return err
}

// Collect 从一个节点地址出发,发现整个集群的节点再逐节点采集
// 任何必需调用失败都让整个主机连接失败,调用严格串行
func (a *VEAdapter) Collect(ctx context.Context, sess orchestrator.Session) (*orchestrator.CollectResult, error) {
	s, ok := sess.(*veSession)
	if !ok {
		return nil, fmt.Errorf("session is not a Proxmox VE session")
	}

	var nodes []NodeEntry
	if err := s.client.Get(ctx, "/nodes", &nodes); err != nil {
		return nil, fmt.Errorf("list cluster nodes: %w", err)
	}

	result := &orchestrator.CollectResult{}
	for _, node := range nodes {
		result.Nodes = append(result.Nodes, node.Node)

		vms, err := collectNode(ctx, s.client, node.Node)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Node, err)
		}
		result.VMs = append(result.VMs, vms...)
	}
	return result, nil
}

// collectNode 采集单个节点下的全部虚拟机
func collectNode(ctx context.Context, client *Client, node string) ([]models.VMRecord, error) {
	var status NodeStatus
	if err := client.Get(ctx, "/nodes/"+node+"/status", &status); err != nil {
		return nil, fmt.Errorf("node status: %w", err)
	}

	hostCPU := fmt.Sprintf("%s (%d)", status.CPUInfo.Model, status.CPUInfo.CPUs)
	hostMemGB := fmt.Sprintf("%.1f", float64(status.Memory.Total)/(1024*1024*1024))
	hostVersion := status.PVEVersion

	var list []VMListEntry
	if err := client.Get(ctx, "/nodes/"+node+"/qemu", &list); err != nil {
		return nil, fmt.Errorf("list VMs: %w", err)
	}

	var records []models.VMRecord
	for _, entry := range list {
		if entry.Template == 1 {
			continue
		}
		rec, err := collectVM(ctx, client, node, entry)
		if err != nil {
			return nil, fmt.Errorf("vm %d: %w", entry.VMID, err)
		}
		rec.HostCPU = hostCPU
		rec.HostMemoryGB = hostMemGB
		rec.HostVersion = hostVersion
		records = append(records, rec)
	}
	return records, nil
}

// collectVM 拉取单台虚拟机的配置和运行状态,归一化成 VMRecord
func collectVM(ctx context.Context, client *Client, node string, entry VMListEntry) (models.VMRecord, error) {
	base := fmt.Sprintf("/nodes/%s/qemu/%d", node, entry.VMID)

	var cfg VMConfig
	if err := client.Get(ctx, base+"/config", &cfg); err != nil {
		return models.VMRecord{}, fmt.Errorf("config: %w", err)
	}
	var status VMStatus
	if err := client.Get(ctx, base+"/status/current", &status); err != nil {
		return models.VMRecord{}, fmt.Errorf("status: %w", err)
	}
	var snaps []SnapshotEntry
	if err := client.Get(ctx, base+"/snapshot", &snaps); err != nil {
		return models.VMRecord{}, fmt.Errorf("snapshots: %w", err)
	}

	cores := cfgInt(cfg, "cores", 1)
	sockets := cfgInt(cfg, "sockets", 1)

	name := entry.Name
	if n := cfgString(cfg, "name"); n != "" {
		name = n
	}

	return models.VMRecord{
		Platform:    PlatformVE,
		HostName:    node,
		VMName:      name,
		State:       status.Status,
		CPUCount:    int(cores * sockets),
		MemoryMB:    cfgInt(cfg, "memory", 0),
		Uptime:      FormatUptime(status.Uptime),
		Generation:  "KVM",
		DynamicMem:  DynamicMemory(cfg),
		NICs:        NICSummary(cfg),
		Disks:       DiskSummary(cfg),
		Checkpoints: SnapshotSummary(snaps),
		Integration: AgentNote(cfg),
	}, nil
}
