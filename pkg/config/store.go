package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wentf9/vtool/pkg/models"
	"github.com/wentf9/vtool/utils"
	"gopkg.in/yaml.v3"
)

type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
}

type defaultStore struct {
	Path string
}

func NewDefaultStore(path string) Store {
	return &defaultStore{Path: path}
}

// Load 读取配置文件
// 文件不存在或损坏时返回空配置而不是报错,避免一条坏记录废掉整个工具;
// 旧版本配置在这里原地升级并立刻写回
func (s *defaultStore) Load() (*Configuration, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Configuration{Version: CurrentVersion}, nil
		}
		return nil, err
	}

	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		utils.Logger.Warn("config file is corrupt, starting with an empty one", "path", s.Path, "err", err)
		return &Configuration{Version: CurrentVersion}, nil
	}

	if cfg.Version < CurrentVersion {
		s.migrate(&cfg)
		// 升级后立即写回,下次就不再走迁移路径
		if err := s.Save(&cfg); err != nil {
			utils.Logger.Warn("failed to write back migrated config", "err", err)
		}
	}

	return &cfg, nil
}

// migrate 将旧版配置补齐到当前版本
func (s *defaultStore) migrate(cfg *Configuration) {
	// v1 -> v2: 历史记录没有 type 字段,当时只支持 Hyper-V
	for i := range cfg.Hosts {
		if cfg.Hosts[i].Kind == "" {
			cfg.Hosts[i].Kind = models.KindHyperV
		}
	}
	for i := range cfg.Groups {
		if cfg.Groups[i].Kind == "" {
			cfg.Groups[i].Kind = models.KindHyperV
		}
	}
	cfg.Version = CurrentVersion
}

// Save 将配置写入文件,权限 0600(内含密文凭据)
func (s *defaultStore) Save(cfg *Configuration) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return os.WriteFile(s.Path, data, 0600)
}
