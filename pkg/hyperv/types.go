package hyperv

// report 远端采集脚本输出的 JSON 结构
type report struct {
	Host hostInfo `json:"Host"`
	VMs  []vmInfo `json:"VMs"`
}

type hostInfo struct {
	Name     string  `json:"Name"`
	CPU      string  `json:"CPU"`
	MemoryGB float64 `json:"MemoryGB"`
	Version  string  `json:"Version"`
}

type vmInfo struct {
	Name          string `json:"Name"`
	State         string `json:"State"`
	CPUCount      int    `json:"CPUCount"`
	MemoryMB      int64  `json:"MemoryMB"`
	UptimeSeconds int64  `json:"UptimeSeconds"`
	Generation    int    `json:"Generation"`
	DynamicMemory bool   `json:"DynamicMemory"`
	NICs          string `json:"NICs"`
	Disks         string `json:"Disks"`
	Checkpoints   string `json:"Checkpoints"`
	Integration   string `json:"Integration"`
}
