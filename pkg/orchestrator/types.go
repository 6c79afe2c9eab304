package orchestrator

import (
	"context"
	"errors"

	"github.com/wentf9/vtool/pkg/models"
)

// ErrCurrentUserUnsupported 适配器在无法以当前用户身份完成认证时返回,
// 编排器据此转入显式凭据流程(交互模式提示输入,批量模式直接失败)
var ErrCurrentUserUnsupported = errors.New("current-user authentication is not available, supply explicit credentials")

// Stage 连接流程所处的阶段,失败结果里带上它,界面据此给出针对性提示
type Stage string

const (
	StageDuplicate  Stage = "duplicate"
	StageProbe      Stage = "probe"
	StageCredential Stage = "credential"
	StageAuth       Stage = "auth"
	StageCollect    Stage = "collect"
	StageRegister   Stage = "register"
)

// FailureKind 错误分类
type FailureKind string

const (
	FailDuplicate     FailureKind = "duplicate"
	FailUnreachable   FailureKind = "unreachable"
	FailPortClosed    FailureKind = "port-closed"
	FailAuth          FailureKind = "auth-failed"
	FailTrustRequired FailureKind = "trust-required"
	FailCollect       FailureKind = "collect-failed"
	FailCancelled     FailureKind = "cancelled"
)

// Outcome 一次连接尝试的结构化结果
// 所有阶段性失败都在编排器边界被收敛成这一个形状,不向外抛异常
type Outcome struct {
	OK      bool
	Stage   Stage
	Kind    FailureKind
	Reason  string // 给用户看的原样提示
	VMCount int
}

func success(count int) Outcome {
	return Outcome{OK: true, Stage: StageRegister, VMCount: count}
}

func failure(stage Stage, kind FailureKind, reason string) Outcome {
	return Outcome{Stage: stage, Kind: kind, Reason: reason}
}

// CollectResult 适配器采集的归一化结果
// Nodes 是该主机名下全部节点/remote 的标识,断开时据此清理 VM 记录
type CollectResult struct {
	VMs   []models.VMRecord
	Nodes []string
}

// Adapter 每种虚拟化平台一个适配器,三段式:探测、认证、采集
// 每段可独立失败,编排器负责上报失败发生在哪一段
type Adapter interface {
	Kind() models.HypervisorKind
	// Probe 认证前的快速可达性检查
	Probe(ctx context.Context, address string, port int) error
	// Authenticate 验证凭据,cred 为 nil 表示当前用户模式
	Authenticate(ctx context.Context, address string, port int, cred *models.Credential) (Session, error)
	// Collect 在已认证的会话上拉取虚拟机清单
	Collect(ctx context.Context, sess Session) (*CollectResult, error)
}

// Session 适配器内部的已认证会话,编排器只负责原样传递
type Session interface {
	Address() string
}

// CredentialPromptRequest 要求界面层弹出凭据输入
type CredentialPromptRequest struct {
	Address  string
	Kind     models.HypervisorKind
	Username string // 预填的用户名,可为空
	TokenID  bool   // true 表示要求输入 API Token 而不是密码
}

// CredentialPromptResult 凭据输入的结果
type CredentialPromptResult struct {
	Credential *models.Credential
	Remember   bool
	Cancelled  bool
}

// Prompter 编排器与界面层之间的交互契约
// 批量模式用 silentPrompter 代替,所有需要人工决定的地方直接判失败
type Prompter interface {
	PromptCredential(req CredentialPromptRequest) CredentialPromptResult
	// Confirm 请求用户确认一个是/否问题,例如把 IP 加入受信任主机
	Confirm(question string) bool
}

// silentPrompter 非交互模式:一律拒绝
type silentPrompter struct{}

func (silentPrompter) PromptCredential(CredentialPromptRequest) CredentialPromptResult {
	return CredentialPromptResult{Cancelled: true}
}

func (silentPrompter) Confirm(string) bool { return false }
