package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/wentf9/vtool/cmd/utils"
	"github.com/wentf9/vtool/global"
	"github.com/wentf9/vtool/pkg/export"
	"github.com/wentf9/vtool/pkg/models"
	"github.com/wentf9/vtool/pkg/orchestrator"
	"github.com/wentf9/vtool/pkg/runner"
)

func NewCmdConnect() *cobra.Command {
	var (
		kindFlag    string
		username    string
		password    string
		currentUser bool
		port        int
		remember    bool
		yes         bool
		hostFile    string
		groupName   string
		exportPath  string
	)

	cmd := &cobra.Command{
		Use:     "connect [address ...]",
		Aliases: []string{"con"},
		Short:   "连接虚拟化主机并显示虚拟机清单",
		Long: `连接一台或多台虚拟化主机,采集虚拟机信息并汇总显示。

单台主机默认交互式连接,缺失的凭据会提示输入;
多台主机(参数列表 / --file / --group)按批量模式串行处理,
全程不弹任何交互,失败的主机最后统一列出,可单独重试。

示例:
  vtool connect hv01.corp.local --type hyperv --current-user
  vtool connect 192.168.1.50 --type pve --user 'root@pam!inv' --password 'xxxx-xxxx'
  vtool connect --file hosts.txt --type pve
  vtool connect --group Lab --export lab.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := models.HypervisorKind(kindFlag)
			if !kind.Valid() {
				return fmt.Errorf("非法的平台类型 %q,可选: hyperv / pve / pdm", kindFlag)
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			addresses := append([]string{}, args...)
			if hostFile != "" {
				fromFile, err := utils.ReadHostFile(hostFile)
				if err != nil {
					return err
				}
				addresses = append(addresses, fromFile...)
			}
			if groupName != "" {
				g := a.Cfg.FindGroup(groupName)
				if g == nil {
					return fmt.Errorf("组 [%s] 不存在", groupName)
				}
				addresses = append(addresses, g.Hosts...)
			}
			if len(addresses) == 0 {
				return fmt.Errorf("请指定至少一个主机地址,或使用 --file / --group")
			}

			var cred *models.Credential
			if username != "" && password != "" {
				cred = &models.Credential{Username: username, Secret: password}
			}

			// 多台主机或明确要求时进入批量模式;非终端环境没法交互,同样按批量走
			bulk := len(addresses) > 1 || yes || !global.IsTerminal

			ctx := context.Background()
			if bulk {
				runBulk(ctx, a, addresses, kind, port, currentUser, cred, remember)
			} else {
				a.Orch.OnStatus = func(msg string) { fmt.Println(msg) }
				outcome := a.Orch.Connect(ctx, orchestrator.ConnectOptions{
					Address:        addresses[0],
					Kind:           kind,
					Port:           port,
					UseCurrentUser: currentUser,
					Credential:     cred,
					Remember:       remember,
					Prompter:       terminalPrompter{},
				})
				if !outcome.OK {
					return fmt.Errorf("连接失败 [%s]: %s", outcome.Kind, outcome.Reason)
				}
			}

			vms := a.Orch.VMs()
			printVMTable(vms)
			printHostSummary(a.Orch.Connected())

			if exportPath != "" {
				if err := export.WriteCSV(exportPath, vms); err != nil {
					return fmt.Errorf("导出失败: %w", err)
				}
				fmt.Printf("已导出 %d 条记录到 %s\n", len(vms), exportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "type", "t", "hyperv", "平台类型: hyperv / pve / pdm")
	cmd.Flags().StringVarP(&username, "user", "u", "", "用户名(Proxmox 需带 realm,Token 形如 user@realm!tokenid)")
	cmd.Flags().StringVarP(&password, "password", "P", "", "密码或 API Token 密钥")
	cmd.Flags().BoolVar(&currentUser, "current-user", false, "以当前用户身份认证(仅 Hyper-V 主机名目标)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "管理端口(默认 5985/8006/8443)")
	cmd.Flags().BoolVarP(&remember, "remember", "r", false, "保存凭据供下次使用")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "非交互模式,需要人工决定的地方直接失败")
	cmd.Flags().StringVarP(&hostFile, "file", "f", "", "主机列表文件,每行一个地址")
	cmd.Flags().StringVarP(&groupName, "group", "g", "", "连接指定组内的全部主机")
	cmd.Flags().StringVarP(&exportPath, "export", "o", "", "连接完成后导出 CSV 到指定文件")

	return cmd
}

// runBulk 批量连接,串行逐台处理,失败不中断
func runBulk(ctx context.Context, a *app, addresses []string, kind models.HypervisorKind, port int, currentUser bool, cred *models.Credential, remember bool) {
	bar := progressbar.NewOptions(len(addresses),
		progressbar.OptionSetDescription("正在连接"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	connect := func(ctx context.Context, address string) orchestrator.Outcome {
		addr, p := utils.ParseHost(address)
		if p == 0 {
			p = port
		}
		return a.Orch.Connect(ctx, orchestrator.ConnectOptions{
			Address:        addr,
			Kind:           kind,
			Port:           p,
			UseCurrentUser: currentUser,
			Credential:     cred,
			Remember:       remember,
			SkipPrompts:    true,
		})
	}

	summary := runner.RunSequential(ctx, addresses, connect, func(runner.Result) {
		bar.Add(1)
	})
	bar.Finish()

	fmt.Printf("批量连接完成: 成功 %d 台, 失败 %d 台\n", summary.Succeeded, summary.Failed)
	if summary.Failed > 0 {
		fmt.Println("失败的主机(可去掉 --file/--yes 单独重试):")
		for _, res := range summary.Results {
			if !res.Outcome.OK {
				fmt.Printf("  %s [%s]: %s\n", res.Address, res.Outcome.Kind, res.Outcome.Reason)
			}
		}
	}
}

// printVMTable 输出虚拟机清单表格
func printVMTable(vms []models.VMRecord) {
	if len(vms) == 0 {
		fmt.Println("没有采集到任何虚拟机")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tHOST\tVM\tSTATE\tCPU\tMEM(MB)\tUPTIME\tGEN\tDYN")
	for _, vm := range vms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%v\n",
			vm.Platform, vm.HostName, vm.VMName, vm.State,
			vm.CPUCount, vm.MemoryMB, vm.Uptime, vm.Generation, vm.DynamicMem)
	}
	w.Flush()
}

// printHostSummary 输出已连接主机的汇总
func printHostSummary(hosts []*models.ConnectedHost) {
	if len(hosts) == 0 {
		return
	}
	total := 0
	var parts []string
	for _, h := range hosts {
		total += h.VMCount
		parts = append(parts, fmt.Sprintf("%s(%d)", h.Address, h.VMCount))
	}
	fmt.Printf("共 %d 台主机 %d 台虚拟机: %s\n", len(hosts), total, strings.Join(parts, ", "))
}

func init() {
	rootCmd.AddCommand(NewCmdConnect())
}
