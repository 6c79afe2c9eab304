package proxmox

// NodeEntry GET /nodes 返回的集群节点
type NodeEntry struct {
	Node   string `json:"node"`
	Status string `json:"status"`
}

// NodeStatus GET /nodes/{node}/status 返回的节点资源信息
type NodeStatus struct {
	CPUInfo    CPUInfo      `json:"cpuinfo"`
	Memory     MemoryStatus `json:"memory"`
	PVEVersion string       `json:"pveversion"`
	KVersion   string       `json:"kversion"`
	Uptime     int64        `json:"uptime"`
}

// CPUInfo 节点 CPU 信息
type CPUInfo struct {
	Model   string `json:"model"`
	CPUs    int    `json:"cpus"`
	Sockets int    `json:"sockets"`
}

// MemoryStatus 节点内存信息
type MemoryStatus struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

// VMListEntry GET /nodes/{node}/qemu 返回的虚拟机条目
type VMListEntry struct {
	VMID     int    `json:"vmid"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Template int    `json:"template,omitempty"`
	MaxMem   int64  `json:"maxmem"`
	Uptime   int64  `json:"uptime"`
}

// VMStatus GET /nodes/{node}/qemu/{vmid}/status/current
type VMStatus struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime"`
	Agent  int    `json:"agent,omitempty"`
}

// VMConfig GET /nodes/{node}/qemu/{vmid}/config
// 磁盘和网卡的 key 是动态的(net0/net1/scsi0/ide2...),用 map 接住
type VMConfig map[string]any

// SnapshotEntry GET /nodes/{node}/qemu/{vmid}/snapshot 的条目
type SnapshotEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SnapTime    int64  `json:"snaptime,omitempty"`
}

// RemoteEntry PDM 管理的集群(remote)
type RemoteEntry struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// RemoteVMEntry PDM 聚合视图下的虚拟机条目
// 聚合层不暴露节点级硬件信息,字段比直连 VE 少
type RemoteVMEntry struct {
	VMID     int    `json:"vmid"`
	Name     string `json:"name"`
	Node     string `json:"node,omitempty"`
	Status   string `json:"status"`
	CPUs     int    `json:"cpus,omitempty"`
	MaxMem   int64  `json:"maxmem,omitempty"`
	Uptime   int64  `json:"uptime,omitempty"`
	Template int    `json:"template,omitempty"`
}
