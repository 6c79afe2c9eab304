package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/wentf9/vtool/cmd/version"
	"github.com/wentf9/vtool/utils"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vtool [command] [flags]",
	Short: "vtool 是一个多平台虚拟机清单工具",
	Long: `vtool 连接一台或多台虚拟化主机(Hyper-V / Proxmox VE / Proxmox PDM),
拉取主机和虚拟机信息,汇总成一张统一的清单表格。
支持主机分组、凭据保存、批量连接和 CSV 导出。`,
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			version.PrintFullVersion()
			os.Exit(0)
		}
		cmd.Help()
		os.Exit(0)
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if debugFlag {
			// 开启调试模式
			utils.Logger.SetLogLevel("debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "显示版本信息")
	rootCmd.PersistentFlags().Bool("debug", false, "开启调试模式")
}
