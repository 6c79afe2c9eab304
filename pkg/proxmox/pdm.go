package proxmox

import (
	"context"
	"fmt"

	"github.com/wentf9/vtool/pkg/models"
	"github.com/wentf9/vtool/pkg/orchestrator"
	"github.com/wentf9/vtool/pkg/probe"
	"github.com/wentf9/vtool/utils"
)

const PlatformPDM = "Proxmox PDM"

// PDMAdapter Proxmox Datacenter Manager 适配器
// 认证方式与 VE 相同;采集时先枚举托管的 remote(集群),
// 枚举接口不可用时退化成把端点当作一台 VE 节点直连
type PDMAdapter struct {
	Prober    probe.Prober
	NewClient ClientFactory
}

func NewPDMAdapter() *PDMAdapter {
	return &PDMAdapter{Prober: probe.New(), NewClient: NewClient}
}

func (a *PDMAdapter) Kind() models.HypervisorKind { return models.KindPDM }

func (a *PDMAdapter) Probe(ctx context.Context, address string, port int) error {
	if err := a.Prober.Ping(address); err != nil {
		return err
	}
	return a.Prober.Port(address, port)
}

func (a *PDMAdapter) Authenticate(ctx context.Context, address string, port int, cred *models.Credential) (orchestrator.Session, error) {
	// 认证流程与 VE 完全一致,复用
	ve := &VEAdapter{Prober: a.Prober, NewClient: a.NewClient}
	return ve.Authenticate(ctx, address, port, cred)
}

// Collect 枚举 remote 并逐个拉取聚合视图的虚拟机清单
// 单个 remote 采集失败只记警告并继续下一个;这是整个工具里唯一
// 允许单元级局部失败的地方
func (a *PDMAdapter) Collect(ctx context.Context, sess orchestrator.Session) (*orchestrator.CollectResult, error) {
	s, ok := sess.(*veSession)
	if !ok {
		return nil, fmt.Errorf("session is not a Proxmox session")
	}

	var remotes []RemoteEntry
	if err := s.client.Get(ctx, "/remotes", &remotes); err != nil {
		// 旧版本或裁剪过的部署没有 remotes 接口,按直连 VE 节点处理
		utils.Logger.Warn("remotes API unavailable, treating endpoint as a direct VE node", "address", s.address, "err", err)
		ve := &VEAdapter{Prober: a.Prober, NewClient: a.NewClient}
		return ve.Collect(ctx, sess)
	}

	result := &orchestrator.CollectResult{}
	for _, remote := range remotes {
		result.Nodes = append(result.Nodes, remote.ID)

		var vms []RemoteVMEntry
		if err := s.client.Get(ctx, "/remotes/"+remote.ID+"/qemu", &vms); err != nil {
			utils.Logger.Warn("failed to collect from remote, skipping", "remote", remote.ID, "err", err)
			continue
		}
		for _, vm := range vms {
			if vm.Template == 1 {
				continue
			}
			result.VMs = append(result.VMs, normalizeRemoteVM(remote.ID, vm))
		}
	}
	return result, nil
}

// normalizeRemoteVM PDM 聚合视图字段有限,主机级字段留空
func normalizeRemoteVM(remote string, vm RemoteVMEntry) models.VMRecord {
	return models.VMRecord{
		Platform:    PlatformPDM,
		HostName:    remote,
		VMName:      vm.Name,
		State:       vm.Status,
		CPUCount:    vm.CPUs,
		MemoryMB:    vm.MaxMem / (1024 * 1024),
		Uptime:      FormatUptime(vm.Uptime),
		Generation:  "KVM",
		NICs:        "None",
		Disks:       "None",
		Checkpoints: "None",
		Integration: "",
	}
}
