package hyperv

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/masterzen/winrm"
	"github.com/wentf9/vtool/pkg/models"
	"github.com/wentf9/vtool/pkg/orchestrator"
	"github.com/wentf9/vtool/pkg/probe"
)

const Platform = "Hyper-V"

// Runner 一条已认证的 WinRM 命令通道,测试时用假实现替换
type Runner interface {
	RunPowershell(ctx context.Context, script string) (string, error)
}

// RunnerFactory 创建并验证一条 WinRM 通道
type RunnerFactory func(ctx context.Context, address string, port int, cred *models.Credential) (Runner, error)

// Adapter Hyper-V over WinRM 适配器
// 分段诊断: ICMP -> 5985 端口 -> NTLM 握手 -> 远程执行采集脚本
type Adapter struct {
	Prober    probe.Prober
	NewRunner RunnerFactory
}

func NewAdapter() *Adapter {
	return &Adapter{Prober: probe.New(), NewRunner: newWinRMRunner}
}

func (a *Adapter) Kind() models.HypervisorKind { return models.KindHyperV }

func (a *Adapter) Probe(ctx context.Context, address string, port int) error {
	if err := a.Prober.Ping(address); err != nil {
		return err
	}
	return a.Prober.Port(address, port)
}

type hvSession struct {
	address string
	runner  Runner
}

func (s *hvSession) Address() string { return s.address }

// Authenticate 建立 WinRM 会话并跑一条空命令验证握手
func (a *Adapter) Authenticate(ctx context.Context, address string, port int, cred *models.Credential) (orchestrator.Session, error) {
	// 纯 Go 的 WinRM 客户端没有当前用户的 Negotiate 单点登录
	if cred == nil {
		return nil, orchestrator.ErrCurrentUserUnsupported
	}
	runner, err := a.NewRunner(ctx, address, port, cred)
	if err != nil {
		return nil, err
	}
	return &hvSession{address: address, runner: runner}, nil
}

// Collect 远程执行采集脚本并把输出归一化成 VMRecord
func (a *Adapter) Collect(ctx context.Context, sess orchestrator.Session) (*orchestrator.CollectResult, error) {
	s, ok := sess.(*hvSession)
	if !ok {
		return nil, fmt.Errorf("session is not a Hyper-V session")
	}

	out, err := s.runner.RunPowershell(ctx, collectScript)
	if err != nil {
		return nil, fmt.Errorf("run collection script: %w", err)
	}

	var rep report
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &rep); err != nil {
		return nil, fmt.Errorf("parse collection output: %w", err)
	}

	result := &orchestrator.CollectResult{Nodes: []string{rep.Host.Name}}
	for _, vm := range rep.VMs {
		result.VMs = append(result.VMs, normalize(rep.Host, vm))
	}
	return result, nil
}

func normalize(host hostInfo, vm vmInfo) models.VMRecord {
	checkpoints := vm.Checkpoints
	if checkpoints == "" {
		checkpoints = "None"
	}
	return models.VMRecord{
		Platform:     Platform,
		HostName:     host.Name,
		HostCPU:      host.CPU,
		HostMemoryGB: strconv.FormatFloat(host.MemoryGB, 'f', 1, 64),
		HostVersion:  host.Version,
		VMName:       vm.Name,
		State:        vm.State,
		CPUCount:     vm.CPUCount,
		MemoryMB:     vm.MemoryMB,
		Uptime:       formatUptime(vm.UptimeSeconds),
		Generation:   strconv.Itoa(vm.Generation),
		DynamicMem:   vm.DynamicMemory,
		NICs:         vm.NICs,
		Disks:        vm.Disks,
		Checkpoints:  checkpoints,
		Integration:  vm.Integration,
	}
}

// formatUptime 与 Proxmox 侧保持同样的 DD:HH:MM:SS 展现
func formatUptime(seconds int64) string {
	if seconds <= 0 {
		return "00:00:00:00"
	}
	return fmt.Sprintf("%02d:%02d:%02d:%02d",
		seconds/86400, (seconds%86400)/3600, (seconds%3600)/60, seconds%60)
}

// winrmRunner 基于 masterzen/winrm 的默认实现,NTLM 认证
type winrmRunner struct {
	client *winrm.Client
}

func newWinRMRunner(ctx context.Context, address string, port int, cred *models.Credential) (Runner, error) {
	endpoint := winrm.NewEndpoint(address, port, false, false, nil, nil, nil, 60*time.Second)
	params := winrm.DefaultParameters
	params.TransportDecorator = func() winrm.Transporter { return &winrm.ClientNTLM{} }

	client, err := winrm.NewClientWithParameters(endpoint, cred.Username, cred.Secret, params)
	if err != nil {
		return nil, fmt.Errorf("create winrm client: %w", err)
	}

	r := &winrmRunner{client: client}
	// 先跑一条最小命令,把认证失败和端口不通在这一步暴露出来
	if _, err := r.run(ctx, "hostname"); err != nil {
		return nil, fmt.Errorf("winrm handshake: %w", err)
	}
	return r, nil
}

func (r *winrmRunner) run(ctx context.Context, cmd string) (string, error) {
	stdout, stderr, code, err := r.client.RunWithContextWithString(ctx, cmd, "")
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("remote command exited %d: %s", code, strings.TrimSpace(stderr))
	}
	return stdout, nil
}

func (r *winrmRunner) RunPowershell(ctx context.Context, script string) (string, error) {
	return r.run(ctx, winrm.Powershell(script))
}
