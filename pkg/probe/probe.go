package probe

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	ping "github.com/prometheus-community/pro-bing"
)

// 探测失败的两种形态,编排器据此生成不同的诊断提示
var (
	ErrUnreachable = errors.New("host unreachable")
	ErrPortClosed  = errors.New("management port closed")
)

// 连通性探测的超时参数
// 原始行为没有定义任何超时,这里显式给出,避免一台死主机挂住整个批次
const (
	icmpProbes  = 2
	icmpTimeout = 3 * time.Second
	tcpTimeout  = 5 * time.Second
)

// Prober 连接前的分段探测:先 ICMP 再管理端口
// 测试里用假实现替换
type Prober interface {
	Ping(address string) error
	Port(address string, port int) error
}

type defaultProber struct{}

func New() Prober {
	return defaultProber{}
}

// Ping 发送两个 ICMP 探测包,全部丢失视为不可达
func (defaultProber) Ping(address string) error {
	pinger, err := ping.NewPinger(address)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrUnreachable, address, err)
	}

	// Linux/macOS 上 raw socket 需要特权,失败时回退到 UDP 模式
	pinger.SetPrivileged(true)
	pinger.Count = icmpProbes
	pinger.Interval = 500 * time.Millisecond
	pinger.Timeout = icmpTimeout

	if err := pinger.Run(); err != nil {
		pinger.SetPrivileged(false)
		if err := pinger.Run(); err != nil {
			return fmt.Errorf("%w: ping %s: %v", ErrUnreachable, address, err)
		}
	}

	if pinger.Statistics().PacketsRecv == 0 {
		return fmt.Errorf("%w: %s did not answer %d ICMP probes", ErrUnreachable, address, icmpProbes)
	}
	return nil
}

// Port 尝试建立 TCP 连接判断管理端口是否开放
func (defaultProber) Port(address string, port int) error {
	target := net.JoinHostPort(address, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", target, tcpTimeout)
	if err != nil {
		return fmt.Errorf("%w: port %d on %s: %v", ErrPortClosed, port, address, err)
	}
	conn.Close()
	return nil
}

// IsIPLiteral 判断地址是否是 IP 字面量
// Kerberos/当前用户认证要求可解析的主机名,IP 目标必须走显式凭据
func IsIPLiteral(address string) bool {
	return net.ParseIP(address) != nil
}
