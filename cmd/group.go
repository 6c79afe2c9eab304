package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wentf9/vtool/cmd/utils"
	"github.com/wentf9/vtool/pkg/models"
)

func NewCmdGroup() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "管理主机组",
		Long: `管理主机组。组内主机共享同一套认证配置(当前用户 / 用户名密码 / API Token),
连接组内主机时凭据一律取组配置,不会弹出任何提示。
一个地址同时只能属于一个组,加入新组会自动从旧组移除。`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdGroupList())
	cmd.AddCommand(NewCmdGroupAdd())
	cmd.AddCommand(NewCmdGroupDelete())
	cmd.AddCommand(NewCmdGroupAddHost())
	cmd.AddCommand(NewCmdGroupRemoveHost())

	return cmd
}

func NewCmdGroupList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出所有主机组",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if len(a.Cfg.Groups) == 0 {
				fmt.Println("还没有任何主机组")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tAUTH\tUSER\tPORT\tHOSTS")
			for _, g := range a.Cfg.Groups {
				port := "-"
				if g.Port != 0 {
					port = fmt.Sprintf("%d", g.Port)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					g.Name, g.Kind, g.Auth, g.Username, port, strings.Join(g.Hosts, ","))
			}
			return w.Flush()
		},
	}
}

func NewCmdGroupAdd() *cobra.Command {
	var (
		kindFlag string
		auth     string
		username string
		secret   string
		port     int
	)

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "创建主机组",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			kind := models.HypervisorKind(kindFlag)
			policy := models.AuthPolicy(auth)
			switch policy {
			case models.AuthCurrentUser, models.AuthPassword, models.AuthAPIToken:
			default:
				return fmt.Errorf("非法的认证方式 %q,可选: current-user / password / api-token", auth)
			}

			g := models.GroupRecord{
				Name:     args[0],
				Kind:     kind,
				Auth:     policy,
				Username: username,
				Port:     port,
			}

			if policy != models.AuthCurrentUser {
				if username == "" {
					return fmt.Errorf("认证方式 %s 需要 --user", policy)
				}
				if secret == "" {
					secret, err = utils.ReadPasswordFromTerminal("组凭据密码/Token 密钥: ")
					if err != nil {
						return err
					}
				}
				enc, err := a.Creds.EncryptGroupSecret(secret)
				if err != nil {
					return fmt.Errorf("加密组凭据失败: %w", err)
				}
				g.EncryptedSecret = enc
			}

			if err := a.Cfg.AddGroup(g); err != nil {
				return err
			}
			if err := a.Save(); err != nil {
				return err
			}
			fmt.Printf("成功创建组 [%s]\n", g.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "type", "t", "pve", "平台类型: hyperv / pve / pdm")
	cmd.Flags().StringVarP(&auth, "auth", "a", "password", "认证方式: current-user / password / api-token")
	cmd.Flags().StringVarP(&username, "user", "u", "", "组用户名或 API Token ID")
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "组密码或 Token 密钥(留空则提示输入)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "组内主机的管理端口")

	return cmd
}

func NewCmdGroupDelete() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [name]",
		Aliases: []string{"rm"},
		Short:   "删除主机组(不影响组内主机的连接历史)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.Cfg.DeleteGroup(args[0]); err != nil {
				return err
			}
			if err := a.Save(); err != nil {
				return err
			}
			fmt.Printf("已删除组 [%s]\n", args[0])
			return nil
		},
	}
}

func NewCmdGroupAddHost() *cobra.Command {
	return &cobra.Command{
		Use:   "add-host [group] [host1,host2...]",
		Short: "将主机加入组(自动从其他组移除)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			count := 0
			for _, host := range strings.Split(args[1], ",") {
				host = strings.TrimSpace(host)
				if host == "" {
					continue
				}
				if err := a.Cfg.AddHostToGroup(args[0], host); err != nil {
					return err
				}
				count++
			}
			if err := a.Save(); err != nil {
				return err
			}
			fmt.Printf("成功将 %d 台主机加入组 [%s]\n", count, args[0])
			return nil
		},
	}
}

func NewCmdGroupRemoveHost() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-host [group] [host1,host2...]",
		Short: "从组中移除主机",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			count := 0
			for _, host := range strings.Split(args[1], ",") {
				host = strings.TrimSpace(host)
				if host == "" {
					continue
				}
				if err := a.Cfg.RemoveHostFromGroup(args[0], host); err != nil {
					fmt.Printf("警告: %v\n", err)
					continue
				}
				count++
			}
			if err := a.Save(); err != nil {
				return err
			}
			fmt.Printf("已从组 [%s] 移除 %d 台主机\n", args[0], count)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(NewCmdGroup())
}
