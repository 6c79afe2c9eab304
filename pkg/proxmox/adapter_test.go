package proxmox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wentf9/vtool/pkg/models"
)

// writeData 按 Proxmox API 的外层 data 信封写响应
func writeData(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

// testAdapter 返回指向假服务器的 VE 适配器
func testAdapter(server *httptest.Server) *VEAdapter {
	return &VEAdapter{
		Prober: noopProber{},
		NewClient: func(address string, port int, insecure bool) *Client {
			return &Client{baseURL: server.URL, httpClient: server.Client()}
		},
	}
}

type noopProber struct{}

func (noopProber) Ping(string) error      { return nil }
func (noopProber) Port(string, int) error { return nil }

func TestAuthenticateWithToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api2/json/version", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		writeData(w, map[string]string{"version": "8.2.4"})
	}))
	defer server.Close()

	adapter := testAdapter(server)
	sess, err := adapter.Authenticate(context.Background(), "pve.local", 8006,
		&models.Credential{Username: "root@pam!inventory", Secret: "s3cret-uuid"})
	require.NoError(t, err)
	require.Equal(t, "pve.local", sess.Address())
	// token 认证不走登录往返,凭据直接放在 Authorization 头里
	require.Equal(t, "PVEAPIToken=root@pam!inventory=s3cret-uuid", gotAuth)
}

func TestAuthenticateWithPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api2/json/access/ticket":
			require.NoError(t, r.ParseForm())
			// 未写 realm 的用户名默认补 @pam
			require.Equal(t, "root@pam", r.PostForm.Get("username"))
			require.Equal(t, "hunter2", r.PostForm.Get("password"))
			writeData(w, map[string]string{
				"ticket":              "PVE:root@pam:TICKET",
				"CSRFPreventionToken": "CSRF-TOKEN",
			})
		case "/api2/json/version":
			cookie, err := r.Cookie("PVEAuthCookie")
			require.NoError(t, err)
			require.Equal(t, "PVE:root@pam:TICKET", cookie.Value)
			require.Equal(t, "CSRF-TOKEN", r.Header.Get("CSRFPreventionToken"))
			writeData(w, map[string]string{"version": "8.2.4"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	adapter := testAdapter(server)
	sess, err := adapter.Authenticate(context.Background(), "pve.local", 8006,
		&models.Credential{Username: "root", Secret: "hunter2"})
	require.NoError(t, err)
	require.NotNil(t, sess)
}

func TestAuthenticateUnauthorizedHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "authentication failure", http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := testAdapter(server)
	_, err := adapter.Authenticate(context.Background(), "pve.local", 8006,
		&models.Credential{Username: "root@pam", Secret: "wrong"})
	require.Error(t, err)
	require.True(t, IsUnauthorized(err))
	require.Contains(t, err.Error(), "realm")
}

func TestAuthenticateNilCredential(t *testing.T) {
	adapter := &VEAdapter{Prober: noopProber{}, NewClient: NewClient}
	_, err := adapter.Authenticate(context.Background(), "pve.local", 8006, nil)
	require.Error(t, err)
}

// clusterHandler 模拟一个双节点集群,共 3 台虚拟机外加 1 个模板
func clusterHandler(t *testing.T) http.Handler {
	t.Helper()

	nodeStatus := map[string]NodeStatus{
		"pve1": {
			CPUInfo:    CPUInfo{Model: "AMD EPYC 7302", CPUs: 32},
			Memory:     MemoryStatus{Total: 64 * 1024 * 1024 * 1024},
			PVEVersion: "pve-manager/8.2.4",
		},
		"pve2": {
			CPUInfo:    CPUInfo{Model: "Intel Xeon Silver 4310", CPUs: 24},
			Memory:     MemoryStatus{Total: 128 * 1024 * 1024 * 1024},
			PVEVersion: "pve-manager/8.2.4",
		},
	}
	vmList := map[string][]VMListEntry{
		"pve1": {
			{VMID: 100, Name: "web01", Status: "running"},
			{VMID: 101, Name: "db01", Status: "stopped"},
			{VMID: 900, Name: "tmpl-debian", Status: "stopped", Template: 1},
		},
		"pve2": {
			{VMID: 200, Name: "worker01", Status: "running"},
		},
	}
	vmConfig := map[int]VMConfig{
		100: {"name": "web01", "cores": float64(2), "sockets": float64(2), "memory": "4096",
			"balloon": float64(2048), "agent": "1",
			"net0":  "virtio=AA:BB:CC:DD:EE:00,bridge=vmbr0",
			"scsi0": "local-lvm:vm-100-disk-0,size=32G"},
		101: {"name": "db01", "cores": float64(4), "memory": "8192",
			"ide2":  "local:iso/debian.iso,media=cdrom",
			"scsi0": "local-lvm:vm-101-disk-0,size=64G"},
		200: {"name": "worker01", "cores": float64(1), "memory": "2048"},
	}
	vmStatus := map[int]VMStatus{
		100: {Status: "running", Uptime: 90061}, // 1 天 1 时 1 分 1 秒
		101: {Status: "stopped"},
		200: {Status: "running", Uptime: 3600},
	}
	vmSnaps := map[int][]SnapshotEntry{
		100: {{Name: "before-upgrade"}, {Name: "current"}},
		101: {{Name: "current"}},
		200: {},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api2/json/nodes", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []NodeEntry{{Node: "pve1", Status: "online"}, {Node: "pve2", Status: "online"}})
	})
	for node, status := range nodeStatus {
		status := status
		mux.HandleFunc("/api2/json/nodes/"+node+"/status", func(w http.ResponseWriter, r *http.Request) {
			writeData(w, status)
		})
	}
	for node, list := range vmList {
		list := list
		mux.HandleFunc("/api2/json/nodes/"+node+"/qemu", func(w http.ResponseWriter, r *http.Request) {
			writeData(w, list)
		})
	}
	for node, list := range vmList {
		for _, entry := range list {
			if entry.Template == 1 {
				continue
			}
			vmid := entry.VMID
			base := fmt.Sprintf("/api2/json/nodes/%s/qemu/%d", node, vmid)
			mux.HandleFunc(base+"/config", func(w http.ResponseWriter, r *http.Request) {
				writeData(w, vmConfig[vmid])
			})
			mux.HandleFunc(base+"/status/current", func(w http.ResponseWriter, r *http.Request) {
				writeData(w, vmStatus[vmid])
			})
			mux.HandleFunc(base+"/snapshot", func(w http.ResponseWriter, r *http.Request) {
				writeData(w, vmSnaps[vmid])
			})
		}
	}
	return mux
}

func TestCollectCluster(t *testing.T) {
	server := httptest.NewServer(clusterHandler(t))
	defer server.Close()

	adapter := testAdapter(server)
	sess := &veSession{address: "pve.local", client: &Client{baseURL: server.URL, httpClient: server.Client()}}

	result, err := adapter.Collect(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, []string{"pve1", "pve2"}, result.Nodes)
	// 模板不算虚拟机
	require.Len(t, result.VMs, 3)

	byName := make(map[string]models.VMRecord)
	for _, vm := range result.VMs {
		require.Equal(t, PlatformVE, vm.Platform)
		require.Equal(t, "KVM", vm.Generation)
		byName[vm.VMName] = vm
	}

	web := byName["web01"]
	require.Equal(t, "pve1", web.HostName)
	require.Equal(t, "running", web.State)
	require.Equal(t, 4, web.CPUCount) // 2 核 x 2 路
	require.Equal(t, int64(4096), web.MemoryMB)
	require.Equal(t, "01:01:01:01", web.Uptime)
	require.True(t, web.DynamicMem)
	require.Equal(t, "net0 [vmbr0, AA:BB:CC:DD:EE:00, -]", web.NICs)
	require.Equal(t, "scsi0: local-lvm:vm-100-disk-0 (size=32G)", web.Disks)
	require.Equal(t, "before-upgrade", web.Checkpoints)
	require.Equal(t, "QEMU guest agent enabled", web.Integration)
	require.Equal(t, "AMD EPYC 7302 (32)", web.HostCPU)
	require.Equal(t, "64.0", web.HostMemoryGB)
	require.Equal(t, "pve-manager/8.2.4", web.HostVersion)

	db := byName["db01"]
	require.Equal(t, "stopped", db.State)
	require.Equal(t, 4, db.CPUCount) // sockets 缺省按 1
	require.Equal(t, "00:00:00:00", db.Uptime)
	require.False(t, db.DynamicMem)
	require.Equal(t, "None", db.Checkpoints)

	worker := byName["worker01"]
	require.Equal(t, "pve2", worker.HostName)
	require.Equal(t, "Intel Xeon Silver 4310 (24)", worker.HostCPU)
	require.Equal(t, "128.0", worker.HostMemoryGB)
}

func TestCollectNodeFailureFailsWhole(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api2/json/nodes", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []NodeEntry{{Node: "pve1", Status: "online"}})
	})
	mux.HandleFunc("/api2/json/nodes/pve1/status", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := testAdapter(server)
	sess := &veSession{address: "pve.local", client: &Client{baseURL: server.URL, httpClient: server.Client()}}

	_, err := adapter.Collect(context.Background(), sess)
	require.Error(t, err)
	require.Contains(t, err.Error(), "pve1")
}

func TestPDMCollectRemotes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api2/json/remotes", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []RemoteEntry{{ID: "cluster-a"}, {ID: "cluster-b"}, {ID: "cluster-c"}})
	})
	mux.HandleFunc("/api2/json/remotes/cluster-a/qemu", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []RemoteVMEntry{
			{VMID: 100, Name: "web01", Status: "running", CPUs: 4, MaxMem: 4096 * 1024 * 1024, Uptime: 3600},
			{VMID: 900, Name: "tmpl", Status: "stopped", Template: 1},
		})
	})
	// cluster-b 不可达,只影响自己
	mux.HandleFunc("/api2/json/remotes/cluster-b/qemu", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "remote unreachable", http.StatusBadGateway)
	})
	mux.HandleFunc("/api2/json/remotes/cluster-c/qemu", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []RemoteVMEntry{
			{VMID: 200, Name: "db01", Status: "stopped", CPUs: 2, MaxMem: 2048 * 1024 * 1024},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := &PDMAdapter{
		Prober: noopProber{},
		NewClient: func(address string, port int, insecure bool) *Client {
			return &Client{baseURL: server.URL, httpClient: server.Client()}
		},
	}
	sess := &veSession{address: "pdm.local", client: &Client{baseURL: server.URL, httpClient: server.Client()}}

	result, err := adapter.Collect(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, []string{"cluster-a", "cluster-b", "cluster-c"}, result.Nodes)
	require.Len(t, result.VMs, 2)

	web := result.VMs[0]
	require.Equal(t, PlatformPDM, web.Platform)
	require.Equal(t, "cluster-a", web.HostName)
	require.Equal(t, "web01", web.VMName)
	require.Equal(t, 4, web.CPUCount)
	require.Equal(t, int64(4096), web.MemoryMB)
	require.Equal(t, "00:01:00:00", web.Uptime)
	require.Equal(t, "KVM", web.Generation)
	// 聚合视图没有主机级字段
	require.Empty(t, web.HostCPU)

	require.Equal(t, "db01", result.VMs[1].VMName)
}

func TestPDMCollectFallsBackToVE(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api2/json/remotes", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api2/json/nodes", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []NodeEntry{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := &PDMAdapter{
		Prober: noopProber{},
		NewClient: func(address string, port int, insecure bool) *Client {
			return &Client{baseURL: server.URL, httpClient: server.Client()}
		},
	}
	sess := &veSession{address: "pdm.local", client: &Client{baseURL: server.URL, httpClient: server.Client()}}

	result, err := adapter.Collect(context.Background(), sess)
	require.NoError(t, err)
	require.Empty(t, result.VMs)
}

func TestIsTokenCredential(t *testing.T) {
	require.True(t, IsTokenCredential(&models.Credential{Username: "root@pam!inventory"}))
	require.False(t, IsTokenCredential(&models.Credential{Username: "root@pam"}))
	require.False(t, IsTokenCredential(nil))
}
