package cmd

import (
	"fmt"

	"github.com/wentf9/vtool/cmd/utils"
	"github.com/wentf9/vtool/pkg/config"
	"github.com/wentf9/vtool/pkg/credstore"
	"github.com/wentf9/vtool/pkg/crypto"
	"github.com/wentf9/vtool/pkg/hyperv"
	"github.com/wentf9/vtool/pkg/orchestrator"
	"github.com/wentf9/vtool/pkg/proxmox"
)

// app 一次命令执行期间的全部依赖,按需惰性组装
type app struct {
	Cfg   *config.Configuration
	Store config.Store
	Creds *credstore.Store
	Orch  *orchestrator.Orchestrator
}

// newApp 加载配置和密钥,组装编排器
func newApp() (*app, error) {
	configPath, keyPath := utils.GetConfigFilePath()
	if configPath == "" {
		return nil, fmt.Errorf("无法确定当前用户的配置目录")
	}

	key, err := crypto.LoadOrGenerateKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("加载加密密钥失败: %w", err)
	}
	crypter, err := crypto.NewCrypter(key)
	if err != nil {
		return nil, err
	}

	store := config.NewDefaultStore(configPath)
	cfg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	creds := credstore.New(cfg, crypter)
	orch := orchestrator.New(cfg, store, creds,
		hyperv.NewAdapter(),
		proxmox.NewVEAdapter(),
		proxmox.NewPDMAdapter(),
	)

	return &app{Cfg: cfg, Store: store, Creds: creds, Orch: orch}, nil
}

// Save 把配置写回磁盘
func (a *app) Save() error {
	return a.Store.Save(a.Cfg)
}
