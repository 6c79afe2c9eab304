package proxmox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatUptime(t *testing.T) {
	require.Equal(t, "00:00:00:00", FormatUptime(0))
	require.Equal(t, "00:00:00:59", FormatUptime(59))
	require.Equal(t, "00:01:01:01", FormatUptime(3661))
	require.Equal(t, "02:03:04:05", FormatUptime(2*86400+3*3600+4*60+5))
}

func TestNICSummary(t *testing.T) {
	cfg := VMConfig{
		"net0": "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0,firewall=1",
		"net1": "e1000=11:22:33:44:55:66,bridge=vmbr1,tag=10",
	}
	require.Equal(t,
		"net0 [vmbr0, AA:BB:CC:DD:EE:FF, -]; net1 [vmbr1, 11:22:33:44:55:66, -]",
		NICSummary(cfg))
}

func TestNICSummaryWithIPConfig(t *testing.T) {
	cfg := VMConfig{
		"net0":      "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0",
		"ipconfig0": "ip=192.168.1.50/24,gw=192.168.1.1",
	}
	require.Equal(t, "net0 [vmbr0, AA:BB:CC:DD:EE:FF, 192.168.1.50/24]", NICSummary(cfg))
}

func TestNICSummaryEmpty(t *testing.T) {
	require.Equal(t, "None", NICSummary(VMConfig{"name": "vm"}))
}

func TestDiskSummaryExcludesCdromAndCloudInit(t *testing.T) {
	cfg := VMConfig{
		"scsi0":   "local-lvm:vm-100-disk-0,size=32G,iothread=1",
		"ide2":    "local:iso/debian.iso,media=cdrom",
		"ide0":    "local-lvm:vm-100-cloudinit,media=cdrom",
		"virtio1": "local-lvm:vm-100-disk-1,size=8G",
	}
	require.Equal(t,
		"scsi0: local-lvm:vm-100-disk-0 (size=32G); virtio1: local-lvm:vm-100-disk-1 (size=8G)",
		DiskSummary(cfg))
}

func TestDiskSummaryEmpty(t *testing.T) {
	require.Equal(t, "None", DiskSummary(VMConfig{"ide2": "local:iso/x.iso,media=cdrom"}))
}

func TestSnapshotSummary(t *testing.T) {
	require.Equal(t, "None", SnapshotSummary(nil))
	require.Equal(t, "None", SnapshotSummary([]SnapshotEntry{{Name: "current"}}))
	require.Equal(t, "before-upgrade; clean",
		SnapshotSummary([]SnapshotEntry{{Name: "before-upgrade"}, {Name: "clean"}, {Name: "current"}}))
}

func TestDynamicMemory(t *testing.T) {
	require.False(t, DynamicMemory(VMConfig{}))
	require.False(t, DynamicMemory(VMConfig{"balloon": float64(0)}))
	require.True(t, DynamicMemory(VMConfig{"balloon": float64(1024)}))
	require.True(t, DynamicMemory(VMConfig{"balloon": "2048"}))
}

func TestAgentNote(t *testing.T) {
	require.Equal(t, "QEMU guest agent disabled", AgentNote(VMConfig{}))
	require.Equal(t, "QEMU guest agent enabled", AgentNote(VMConfig{"agent": "1"}))
	require.Equal(t, "QEMU guest agent enabled", AgentNote(VMConfig{"agent": "1,fstrim_cloned_disks=1"}))
	require.Equal(t, "QEMU guest agent disabled", AgentNote(VMConfig{"agent": "0"}))
}

func TestCfgHelpers(t *testing.T) {
	cfg := VMConfig{"memory": "2048", "cores": float64(4), "name": "web01"}
	require.Equal(t, int64(2048), cfgInt(cfg, "memory", 0))
	require.Equal(t, int64(4), cfgInt(cfg, "cores", 1))
	require.Equal(t, int64(1), cfgInt(cfg, "sockets", 1))
	require.Equal(t, "web01", cfgString(cfg, "name"))
	require.Equal(t, "2048", cfgString(cfg, "memory"))
}
