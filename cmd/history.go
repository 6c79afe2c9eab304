package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewCmdHistory() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看和清理连接历史",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdHistoryList())
	cmd.AddCommand(NewCmdHistoryClear())

	return cmd
}

func NewCmdHistoryList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "按最近连接时间列出历史主机",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			records := a.Creds.History()
			if len(records) == 0 {
				fmt.Println("没有连接历史")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tTYPE\tUSER\tSAVED\tLAST CONNECTED")
			for _, r := range records {
				user := r.Username
				if r.UseCurrentUser {
					user = "(当前用户)"
				}
				saved := "-"
				if r.EncryptedPassword != "" {
					saved = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.Address, r.Kind, user, saved, r.LastConnectedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func NewCmdHistoryClear() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "清空全部连接历史(包括保存的凭据)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.Creds.ClearHistory()
			if err := a.Save(); err != nil {
				return err
			}
			fmt.Println("连接历史已清空")
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(NewCmdHistory())
}
