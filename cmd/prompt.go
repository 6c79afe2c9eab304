package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/wentf9/vtool/cmd/utils"
	"github.com/wentf9/vtool/pkg/models"
	"github.com/wentf9/vtool/pkg/orchestrator"
)

// terminalPrompter 终端实现的交互契约
// 图形界面换一个实现即可,编排器不感知
type terminalPrompter struct{}

func (terminalPrompter) PromptCredential(req orchestrator.CredentialPromptRequest) orchestrator.CredentialPromptResult {
	reader := bufio.NewReader(os.Stdin)

	label := "用户名"
	if req.TokenID {
		label = "用户名或 API Token ID (user@realm!tokenid)"
	}
	fmt.Printf("请输入 %s 的凭据\n%s: ", req.Address, label)
	if req.Username != "" {
		fmt.Printf("[%s] ", req.Username)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return orchestrator.CredentialPromptResult{Cancelled: true}
	}
	username := strings.TrimSpace(line)
	if username == "" {
		username = req.Username
	}
	if username == "" {
		return orchestrator.CredentialPromptResult{Cancelled: true}
	}

	secretLabel := "密码"
	if strings.Contains(username, "!") {
		secretLabel = "Token 密钥"
	}
	secret, err := utils.ReadPasswordFromTerminal(secretLabel + ": ")
	if err != nil || secret == "" {
		return orchestrator.CredentialPromptResult{Cancelled: true}
	}

	remember := askYesNo(reader, "保存此凭据供下次使用?")
	return orchestrator.CredentialPromptResult{
		Credential: &models.Credential{Username: username, Secret: secret},
		Remember:   remember,
	}
}

func (terminalPrompter) Confirm(question string) bool {
	return askYesNo(bufio.NewReader(os.Stdin), question)
}

func askYesNo(reader *bufio.Reader, question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
