package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wentf9/vtool/pkg/models"
)

func twoGroups(t *testing.T) *Configuration {
	t.Helper()
	cfg := &Configuration{Version: CurrentVersion}
	require.NoError(t, cfg.AddGroup(models.GroupRecord{Name: "G1", Kind: models.KindPVE, Auth: models.AuthAPIToken}))
	require.NoError(t, cfg.AddGroup(models.GroupRecord{Name: "G2", Kind: models.KindHyperV, Auth: models.AuthCurrentUser}))
	return cfg
}

func TestAddGroupRejectsDuplicateName(t *testing.T) {
	cfg := twoGroups(t)
	err := cfg.AddGroup(models.GroupRecord{Name: "G1", Kind: models.KindPVE, Auth: models.AuthPassword})
	require.Error(t, err)
}

func TestHostBelongsToAtMostOneGroup(t *testing.T) {
	cfg := twoGroups(t)
	require.NoError(t, cfg.AddHostToGroup("G1", "pve1"))
	require.True(t, cfg.FindGroup("G1").HasHost("pve1"))

	// 加入 G2 时自动从 G1 移除
	require.NoError(t, cfg.AddHostToGroup("G2", "pve1"))
	require.False(t, cfg.FindGroup("G1").HasHost("pve1"))
	require.True(t, cfg.FindGroup("G2").HasHost("pve1"))
}

func TestAddHostToGroupIsIdempotent(t *testing.T) {
	cfg := twoGroups(t)
	require.NoError(t, cfg.AddHostToGroup("G1", "pve1"))
	require.NoError(t, cfg.AddHostToGroup("G1", "pve1"))
	require.Len(t, cfg.FindGroup("G1").Hosts, 1)
}

func TestFindGroupForHostStoredOrderWins(t *testing.T) {
	cfg := twoGroups(t)
	// 手工构造出重复归属,解析必须按存储顺序取第一个
	cfg.Groups[0].Hosts = []string{"dup"}
	cfg.Groups[1].Hosts = []string{"dup"}
	g := cfg.FindGroupForHost("dup")
	require.NotNil(t, g)
	require.Equal(t, "G1", g.Name)
}

func TestFindGroupForHostMiss(t *testing.T) {
	cfg := twoGroups(t)
	require.Nil(t, cfg.FindGroupForHost("nope"))
}

func TestDeleteGroupKeepsHistory(t *testing.T) {
	cfg := twoGroups(t)
	cfg.Hosts = []models.HostRecord{{Address: "pve1", Kind: models.KindPVE}}
	require.NoError(t, cfg.AddHostToGroup("G1", "pve1"))

	require.NoError(t, cfg.DeleteGroup("G1"))
	require.Nil(t, cfg.FindGroup("G1"))
	// 删组不动连接历史
	require.Equal(t, 0, cfg.FindHost("pve1"))
}

func TestRemoveHostFromGroup(t *testing.T) {
	cfg := twoGroups(t)
	require.NoError(t, cfg.AddHostToGroup("G1", "pve1"))
	require.NoError(t, cfg.RemoveHostFromGroup("G1", "pve1"))
	require.False(t, cfg.FindGroup("G1").HasHost("pve1"))
	require.Error(t, cfg.RemoveHostFromGroup("G1", "pve1"))
}

func TestTrustedHosts(t *testing.T) {
	cfg := &Configuration{}
	require.False(t, cfg.IsTrusted("10.0.0.5"))
	cfg.AddTrusted("10.0.0.5")
	cfg.AddTrusted("10.0.0.5")
	require.True(t, cfg.IsTrusted("10.0.0.5"))
	require.Len(t, cfg.TrustedHosts, 1)
}
