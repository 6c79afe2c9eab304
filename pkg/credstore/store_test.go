package credstore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wentf9/vtool/pkg/config"
	"github.com/wentf9/vtool/pkg/crypto"
	"github.com/wentf9/vtool/pkg/models"
)

func newStore(t *testing.T) (*Store, *config.Configuration) {
	t.Helper()
	cfg := &config.Configuration{Version: config.CurrentVersion}
	crypter, err := crypto.NewCrypter(crypto.DeriveUserKey(make([]byte, crypto.KeySize), "tester"))
	require.NoError(t, err)
	return New(cfg, crypter), cfg
}

func TestResolveUnknownAddress(t *testing.T) {
	s, _ := newStore(t)
	require.Nil(t, s.Resolve("nope"))
}

func TestPersistRememberAndResolve(t *testing.T) {
	s, cfg := newStore(t)
	cred := &models.Credential{Username: "admin", Secret: "pw"}
	require.NoError(t, s.Persist("hv01", models.KindHyperV, false, cred, true))

	// 明文不落盘
	require.True(t, crypto.IsEncrypted(cfg.Hosts[0].EncryptedPassword))
	require.NotContains(t, cfg.Hosts[0].EncryptedPassword, "pw")

	got := s.Resolve("hv01")
	require.NotNil(t, got)
	require.Equal(t, "admin", got.Username)
	require.Equal(t, "pw", got.Secret)
}

func TestPersistWithoutRememberKeepsHistoryOnly(t *testing.T) {
	s, cfg := newStore(t)
	cred := &models.Credential{Username: "admin", Secret: "pw"}
	require.NoError(t, s.Persist("hv01", models.KindHyperV, false, cred, false))

	require.Len(t, cfg.Hosts, 1)
	require.Empty(t, cfg.Hosts[0].EncryptedPassword)
	require.Nil(t, s.Resolve("hv01"))
}

func TestPersistMovesToFront(t *testing.T) {
	s, cfg := newStore(t)
	require.NoError(t, s.Persist("a", models.KindPVE, false, nil, false))
	require.NoError(t, s.Persist("b", models.KindPVE, false, nil, false))
	require.NoError(t, s.Persist("a", models.KindPVE, false, nil, false))

	require.Len(t, cfg.Hosts, 2)
	require.Equal(t, "a", cfg.Hosts[0].Address)
	require.Equal(t, "b", cfg.Hosts[1].Address)
}

func TestHistoryEvictionAtCap(t *testing.T) {
	s, cfg := newStore(t)
	for i := 0; i < config.MaxHistory; i++ {
		require.NoError(t, s.Persist(fmt.Sprintf("host-%02d", i), models.KindPVE, false, nil, false))
	}
	require.Len(t, cfg.Hosts, config.MaxHistory)

	// 第 21 台挤掉最久未连接的 host-00
	require.NoError(t, s.Persist("host-20", models.KindPVE, false, nil, false))
	require.Len(t, cfg.Hosts, config.MaxHistory)
	require.Equal(t, -1, cfg.FindHost("host-00"))
	require.GreaterOrEqual(t, cfg.FindHost("host-20"), 0)
}

func TestResolveSwallowsDecryptFailure(t *testing.T) {
	s, cfg := newStore(t)

	// 用另一个用户的密钥加密,模拟密钥文件被拷到别的账号下
	other, err := crypto.NewCrypter(crypto.DeriveUserKey(make([]byte, crypto.KeySize), "other"))
	require.NoError(t, err)
	enc, err := other.Encrypt("pw")
	require.NoError(t, err)

	cfg.Hosts = []models.HostRecord{{
		Address:           "hv01",
		Kind:              models.KindHyperV,
		Username:          "admin",
		EncryptedPassword: enc,
		LastConnectedAt:   time.Now(),
	}}

	require.Nil(t, s.Resolve("hv01"))
}

func TestResolveGroup(t *testing.T) {
	s, _ := newStore(t)

	enc, err := s.EncryptGroupSecret("token-secret")
	require.NoError(t, err)
	g := &models.GroupRecord{Name: "Lab", Auth: models.AuthAPIToken, Username: "root@pam!inv", EncryptedSecret: enc}

	cred := s.ResolveGroup(g)
	require.NotNil(t, cred)
	require.Equal(t, "root@pam!inv", cred.Username)
	require.Equal(t, "token-secret", cred.Secret)

	require.Nil(t, s.ResolveGroup(nil))
	require.Nil(t, s.ResolveGroup(&models.GroupRecord{Name: "empty"}))
}

func TestClearHistory(t *testing.T) {
	s, cfg := newStore(t)
	require.NoError(t, s.Persist("a", models.KindPVE, false, nil, false))
	s.ClearHistory()
	require.Empty(t, cfg.Hosts)
	require.Empty(t, s.History())
}
