package runner

import (
	"context"

	"github.com/wentf9/vtool/pkg/orchestrator"
)

// Result 单台主机的连接结果
type Result struct {
	Address string
	Outcome orchestrator.Outcome
}

// Summary 整批的聚合结果
// FailedAddresses 保持输入顺序,调用方可以拿它逐台开着交互重试
type Summary struct {
	Succeeded       int
	Failed          int
	FailedAddresses []string
	Results         []Result
}

// ConnectFunc 对单台主机发起连接,由编排器提供
type ConnectFunc func(ctx context.Context, address string) orchestrator.Outcome

// RunSequential 逐台串行连接
// 批量模式全程无交互(调用方负责传入 SkipPrompts=true 的连接函数),
// 单台失败不中断批次;onResult 在每台完成后回调,用于进度展示
func RunSequential(ctx context.Context, addresses []string, connect ConnectFunc, onResult func(Result)) Summary {
	summary := Summary{}
	for _, addr := range addresses {
		outcome := connect(ctx, addr)
		res := Result{Address: addr, Outcome: outcome}
		summary.Results = append(summary.Results, res)
		if outcome.OK {
			summary.Succeeded++
		} else {
			summary.Failed++
			summary.FailedAddresses = append(summary.FailedAddresses, addr)
		}
		if onResult != nil {
			onResult(res)
		}
	}
	return summary
}
