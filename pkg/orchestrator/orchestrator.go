package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wentf9/vtool/pkg/config"
	"github.com/wentf9/vtool/pkg/credstore"
	"github.com/wentf9/vtool/pkg/models"
	"github.com/wentf9/vtool/pkg/probe"
	"github.com/wentf9/vtool/utils"
	"golang.org/x/sync/singleflight"
)

// Orchestrator 连接编排器,持有进程生命周期内的全部运行时状态:
// 已连接主机表和扁平的 VM 数据集
// 同一时刻只允许一次编排在途(互斥锁),对同一地址的并发请求用
// singleflight 合并,保持"单写者"的约束
type Orchestrator struct {
	mu sync.Mutex
	sf singleflight.Group

	cfg      *config.Configuration
	store    config.Store
	creds    *credstore.Store
	adapters map[models.HypervisorKind]Adapter

	connected map[string]*models.ConnectedHost
	order     []string // 保持连接顺序,表格输出稳定
	vms       []models.VMRecord

	// OnStatus 每个可观察的状态变化都会通知一次,供界面层刷新
	OnStatus func(msg string)
}

// ConnectOptions 一次连接尝试的全部输入
type ConnectOptions struct {
	Address        string
	Kind           models.HypervisorKind
	Port           int // 0 表示用平台默认端口
	UseCurrentUser bool
	Credential     *models.Credential // 显式提供的凭据,优先级最高
	Remember       bool
	SkipPrompts    bool
	Prompter       Prompter
}

func New(cfg *config.Configuration, store config.Store, creds *credstore.Store, adapters ...Adapter) *Orchestrator {
	m := make(map[models.HypervisorKind]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Kind()] = a
	}
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		creds:     creds,
		adapters:  m,
		connected: make(map[string]*models.ConnectedHost),
	}
}

func (o *Orchestrator) status(format string, args ...any) {
	if o.OnStatus != nil {
		o.OnStatus(fmt.Sprintf(format, args...))
	}
}

// IsConnected 该地址是否已有连接
func (o *Orchestrator) IsConnected(address string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.connected[address]
	return ok
}

// Connected 按连接顺序返回已连接主机
func (o *Orchestrator) Connected() []*models.ConnectedHost {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*models.ConnectedHost, 0, len(o.order))
	for _, addr := range o.order {
		if h, ok := o.connected[addr]; ok {
			out = append(out, h)
		}
	}
	return out
}

// VMs 返回全部已采集的虚拟机记录副本
func (o *Orchestrator) VMs() []models.VMRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.VMRecord, len(o.vms))
	copy(out, o.vms)
	return out
}

// Connect 一次完整的连接尝试
// 阶段: 查重 -> 可达性探测 -> 凭据解析 -> 认证 -> 采集 -> 登记
// 任何阶段失败都收敛成 Outcome,不会留下半个已连接状态
func (o *Orchestrator) Connect(ctx context.Context, opts ConnectOptions) Outcome {
	// 同地址并发请求合并成一次
	v, _, _ := o.sf.Do(opts.Address, func() (any, error) {
		return o.connect(ctx, opts), nil
	})
	return v.(Outcome)
}

func (o *Orchestrator) connect(ctx context.Context, opts ConnectOptions) Outcome {
	address := opts.Address
	prompter := opts.Prompter
	if opts.SkipPrompts || prompter == nil {
		prompter = silentPrompter{}
	}

	// —— 查重 ——
	if o.IsConnected(address) {
		return failure(StageDuplicate, FailDuplicate,
			fmt.Sprintf("主机 %s 已连接,请先断开", address))
	}

	// 组配置优先于调用方传入的平台类型和端口
	kind := opts.Kind
	port := opts.Port
	group := o.cfg.FindGroupForHost(address)
	if group != nil {
		kind = group.Kind
		if group.Port != 0 {
			port = group.Port
		}
	}
	adapter, ok := o.adapters[kind]
	if !ok {
		return failure(StageProbe, FailCollect, fmt.Sprintf("不支持的平台类型: %s", kind))
	}
	if port == 0 {
		port = kind.DefaultPort()
	}

	// —— 可达性探测 ——
	o.status("正在探测 %s ...", address)
	if err := adapter.Probe(ctx, address, port); err != nil {
		if errors.Is(err, probe.ErrPortClosed) {
			return failure(StageProbe, FailPortClosed,
				fmt.Sprintf("%s 的管理端口 %d 未开放,请确认远程管理服务已启用: %v", address, port, err))
		}
		return failure(StageProbe, FailUnreachable,
			fmt.Sprintf("主机 %s 不可达: %v", address, err))
	}

	// —— 凭据解析 ——
	o.status("正在解析 %s 的凭据 ...", address)
	cred, remember, out := o.resolveCredential(address, kind, group, opts, prompter)
	if out != nil {
		return *out
	}

	// Hyper-V 按 IP 直连需要客户端白名单,批量模式下不擅自添加
	if kind == models.KindHyperV && cred != nil && probe.IsIPLiteral(address) {
		if out := o.ensureTrusted(address, opts.SkipPrompts, prompter); out != nil {
			return *out
		}
	}

	// —— 认证 ——
	o.status("正在认证 %s ...", address)
	sess, err := adapter.Authenticate(ctx, address, port, cred)
	if errors.Is(err, ErrCurrentUserUnsupported) {
		// 当前用户模式在这套实现里到不了传输层,回退到显式凭据
		res := prompter.PromptCredential(CredentialPromptRequest{Address: address, Kind: kind})
		if res.Cancelled || res.Credential == nil {
			return failure(StageAuth, FailCancelled,
				fmt.Sprintf("主机 %s 无法以当前用户认证且未提供凭据", address))
		}
		cred, remember = res.Credential, res.Remember
		sess, err = adapter.Authenticate(ctx, address, port, cred)
	}
	if err != nil {
		return failure(StageAuth, FailAuth,
			fmt.Sprintf("主机 %s 认证失败: %v", address, err))
	}

	// —— 采集 ——
	o.status("正在采集 %s 的虚拟机清单 ...", address)
	result, err := adapter.Collect(ctx, sess)
	if err != nil {
		return failure(StageCollect, FailCollect,
			fmt.Sprintf("主机 %s 数据采集失败(认证已通过,可能是权限不足): %v", address, err))
	}

	// —— 登记 ——
	o.mu.Lock()
	host := &models.ConnectedHost{
		Address:     address,
		Kind:        kind,
		Credential:  cred,
		VMCount:     len(result.VMs),
		Nodes:       result.Nodes,
		ConnectedAt: time.Now(),
	}
	o.connected[address] = host
	o.order = append(o.order, address)
	o.vms = append(o.vms, result.VMs...)
	o.mu.Unlock()

	if err := o.creds.Persist(address, kind, opts.UseCurrentUser, cred, remember); err != nil {
		utils.Logger.Warn("failed to persist host record", "address", address, "err", err)
	}
	if err := o.store.Save(o.cfg); err != nil {
		utils.Logger.Warn("failed to save config", "err", err)
	}

	o.status("主机 %s 连接成功,共 %d 台虚拟机", address, len(result.VMs))
	return success(len(result.VMs))
}

// resolveCredential 按优先级解析凭据:
// 显式提供 -> 组凭据 -> 保存过的主机凭据(需用户确认) -> 交互输入
// 返回的 *Outcome 非空表示流程应带着该失败结果终止
func (o *Orchestrator) resolveCredential(address string, kind models.HypervisorKind, group *models.GroupRecord, opts ConnectOptions, prompter Prompter) (*models.Credential, bool, *Outcome) {
	if opts.Credential != nil {
		return opts.Credential, opts.Remember, nil
	}

	if group != nil {
		if group.Auth == models.AuthCurrentUser {
			return o.currentUserCredential(address, kind, opts, prompter)
		}
		if cred := o.creds.ResolveGroup(group); cred != nil {
			return cred, false, nil
		}
		// 组声明了凭据策略却没有可用凭据,不再向下降级
		out := failure(StageCredential, FailCancelled,
			fmt.Sprintf("主机 %s 所属组 [%s] 没有可用的凭据", address, group.Name))
		return nil, false, &out
	}

	if opts.UseCurrentUser {
		return o.currentUserCredential(address, kind, opts, prompter)
	}

	if saved := o.creds.Resolve(address); saved != nil {
		// 复用保存过的凭据需要用户点头,批量模式下没人点头,直接失败
		if opts.SkipPrompts {
			out := failure(StageCredential, FailCancelled,
				fmt.Sprintf("主机 %s 有保存的凭据但批量模式下无法确认使用", address))
			return nil, false, &out
		}
		if prompter.Confirm(fmt.Sprintf("使用为 %s 保存的凭据 (%s)?", address, saved.Username)) {
			return saved, false, nil
		}
	}

	res := prompter.PromptCredential(CredentialPromptRequest{
		Address: address,
		Kind:    kind,
		TokenID: kind != models.KindHyperV,
	})
	if res.Cancelled || res.Credential == nil {
		out := failure(StageCredential, FailCancelled,
			fmt.Sprintf("主机 %s 需要凭据但未提供", address))
		return nil, false, &out
	}
	return res.Credential, res.Remember, nil
}

// currentUserCredential 处理当前用户模式
// Kerberos 需要可解析的主机名,IP 目标必须回退到显式凭据;
// 批量模式没有交互回退,按取消处理
func (o *Orchestrator) currentUserCredential(address string, kind models.HypervisorKind, opts ConnectOptions, prompter Prompter) (*models.Credential, bool, *Outcome) {
	if !probe.IsIPLiteral(address) {
		// 主机名目标: 当前用户模式交给适配器,凭据为 nil
		return nil, false, nil
	}

	if opts.SkipPrompts {
		out := failure(StageCredential, FailCancelled,
			fmt.Sprintf("主机 %s 是 IP 地址,无法使用当前用户(Kerberos)认证,批量模式下不能转为交互输入", address))
		return nil, false, &out
	}

	res := prompter.PromptCredential(CredentialPromptRequest{Address: address, Kind: kind})
	if res.Cancelled || res.Credential == nil {
		out := failure(StageCredential, FailCancelled,
			fmt.Sprintf("主机 %s 是 IP 地址,当前用户认证不可用且未提供凭据", address))
		return nil, false, &out
	}
	return res.Credential, res.Remember, nil
}

// ensureTrusted 确认 IP 目标在受信任主机白名单里
// 添加白名单是一次显式的、需要用户确认的特权操作;
// 批量模式下跳过(而不是悄悄添加),让这台主机失败
func (o *Orchestrator) ensureTrusted(address string, skipPrompts bool, prompter Prompter) *Outcome {
	if o.cfg.IsTrusted(address) {
		return nil
	}
	if skipPrompts {
		out := failure(StageAuth, FailTrustRequired,
			fmt.Sprintf("IP 目标 %s 不在受信任主机列表中,批量模式下不会自动添加", address))
		return &out
	}
	if !prompter.Confirm(fmt.Sprintf("将 %s 加入受信任主机列表(按 IP 认证所必需)?", address)) {
		out := failure(StageAuth, FailTrustRequired,
			fmt.Sprintf("IP 目标 %s 未加入受信任主机列表,无法继续认证", address))
		return &out
	}
	o.cfg.AddTrusted(address)
	if err := o.store.Save(o.cfg); err != nil {
		utils.Logger.Warn("failed to save trusted hosts", "err", err)
	}
	return nil
}

// Disconnect 断开一台主机,清掉它名下的全部 VM 记录
func (o *Orchestrator) Disconnect(address string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	host, ok := o.connected[address]
	if !ok {
		return fmt.Errorf("host '%s' is not connected", address)
	}

	kept := o.vms[:0]
	for _, vm := range o.vms {
		if !host.OwnsNode(vm.HostName) {
			kept = append(kept, vm)
		}
	}
	o.vms = kept

	delete(o.connected, address)
	for i, addr := range o.order {
		if addr == address {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return nil
}

// DisconnectAll 清空已连接主机表和 VM 数据集
func (o *Orchestrator) DisconnectAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = make(map[string]*models.ConnectedHost)
	o.order = nil
	o.vms = nil
}
