package credstore

import (
	"sort"
	"time"

	"github.com/wentf9/vtool/pkg/config"
	"github.com/wentf9/vtool/pkg/crypto"
	"github.com/wentf9/vtool/pkg/models"
	"github.com/wentf9/vtool/utils"
)

// Store 负责凭据的加解密与历史记录维护
// 密文存放在配置文档里,这里只处理"谁以什么身份连接"的解析
type Store struct {
	cfg     *config.Configuration
	crypter *crypto.Crypter
}

func New(cfg *config.Configuration, crypter *crypto.Crypter) *Store {
	return &Store{cfg: cfg, crypter: crypter}
}

// Resolve 查找某地址保存过的凭据
// 解密失败(比如密钥是别的用户生成的)一律视为"没有保存凭据",不向上抛错
func (s *Store) Resolve(address string) *models.Credential {
	i := s.cfg.FindHost(address)
	if i < 0 {
		return nil
	}
	rec := s.cfg.Hosts[i]
	if rec.EncryptedPassword == "" {
		return nil
	}
	secret, err := s.crypter.Decrypt(rec.EncryptedPassword)
	if err != nil {
		utils.Logger.Debug("saved credential could not be decrypted, ignoring", "address", address, "err", err)
		return nil
	}
	return &models.Credential{Username: rec.Username, Secret: secret}
}

// ResolveGroup 解出组级凭据
func (s *Store) ResolveGroup(g *models.GroupRecord) *models.Credential {
	if g == nil || g.EncryptedSecret == "" {
		return nil
	}
	secret, err := s.crypter.Decrypt(g.EncryptedSecret)
	if err != nil {
		utils.Logger.Debug("group credential could not be decrypted, ignoring", "group", g.Name, "err", err)
		return nil
	}
	return &models.Credential{Username: g.Username, Secret: secret}
}

// EncryptGroupSecret 加密组级凭据,供组管理命令写入配置
func (s *Store) EncryptGroupSecret(plaintext string) (string, error) {
	return s.crypter.Encrypt(plaintext)
}

// Persist 在连接成功后更新该地址的历史记录
// remember 为 false 时仍会记录地址和时间,只是不保存凭据本身;
// 记录移到最前,超过上限时淘汰最久未连接的一条
func (s *Store) Persist(address string, kind models.HypervisorKind, useCurrentUser bool, cred *models.Credential, remember bool) error {
	rec := models.HostRecord{
		Address:         address,
		Kind:            kind,
		LastConnectedAt: time.Now(),
		UseCurrentUser:  useCurrentUser,
	}
	if remember && cred != nil {
		enc, err := s.crypter.Encrypt(cred.Secret)
		if err != nil {
			return err
		}
		rec.Username = cred.Username
		rec.EncryptedPassword = enc
	} else if cred != nil {
		rec.Username = cred.Username
	}

	if i := s.cfg.FindHost(address); i >= 0 {
		s.cfg.Hosts = append(s.cfg.Hosts[:i], s.cfg.Hosts[i+1:]...)
	}
	s.cfg.Hosts = append([]models.HostRecord{rec}, s.cfg.Hosts...)

	if len(s.cfg.Hosts) > config.MaxHistory {
		s.evictOldest()
	}
	return nil
}

// evictOldest 淘汰最久未连接的记录,只保留上限条数
func (s *Store) evictOldest() {
	hosts := s.cfg.Hosts
	oldest := 0
	for i := 1; i < len(hosts); i++ {
		if hosts[i].LastConnectedAt.Before(hosts[oldest].LastConnectedAt) {
			oldest = i
		}
	}
	s.cfg.Hosts = append(hosts[:oldest], hosts[oldest+1:]...)
}

// History 返回按最近连接时间排序的历史记录副本
func (s *Store) History() []models.HostRecord {
	out := make([]models.HostRecord, len(s.cfg.Hosts))
	copy(out, s.cfg.Hosts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastConnectedAt.After(out[j].LastConnectedAt)
	})
	return out
}

// ClearHistory 清空全部历史记录
func (s *Store) ClearHistory() {
	s.cfg.Hosts = nil
}
