package proxmox

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	nicKeyRe  = regexp.MustCompile(`^net(\d+)$`)
	diskKeyRe = regexp.MustCompile(`^(ide|sata|scsi|virtio|efidisk|tpmstate)(\d+)$`)
	macRe     = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)
)

// FormatUptime 把秒数格式化为 DD:HH:MM:SS
func FormatUptime(seconds int64) string {
	if seconds <= 0 {
		return "00:00:00:00"
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", days, hours, minutes, secs)
}

// cfgString 从 VMConfig 里取字符串值,数字也转成字符串
func cfgString(cfg VMConfig, key string) string {
	v, ok := cfg[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return fmt.Sprintf("%v", v)
}

// cfgInt 从 VMConfig 里取整数值,"2048" 和 2048 都接受
func cfgInt(cfg VMConfig, key string, def int64) int64 {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// parseKVString 解析 Proxmox 配置里逗号分隔的 key=value 串
// 第一个无 key 的段作为 "" 键存入(如 "local-lvm:vm-100-disk-0,size=32G")
func parseKVString(s string) map[string]string {
	out := make(map[string]string)
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if k, v, ok := strings.Cut(part, "="); ok {
			out[k] = v
		} else if i == 0 {
			out[""] = part
		}
	}
	return out
}

// NICSummary 把配置里所有 netN 条目汇总成一行
// 格式: "net0 [vmbr0, AA:BB:CC:DD:EE:FF, -]" 以 "; " 连接
func NICSummary(cfg VMConfig) string {
	keys := matchingKeys(cfg, nicKeyRe)
	var parts []string
	for _, key := range keys {
		kv := parseKVString(cfgString(cfg, key))
		bridge := kv["bridge"]
		if bridge == "" {
			bridge = "-"
		}
		// MAC 出现在网卡型号的值里,如 virtio=AA:BB:...
		mac := "-"
		for _, v := range kv {
			if macRe.MatchString(v) {
				mac = strings.ToUpper(v)
				break
			}
		}
		ips := "-"
		if ipcfg := cfgString(cfg, "ipconfig"+strings.TrimPrefix(key, "net")); ipcfg != "" {
			ipkv := parseKVString(ipcfg)
			if ip := ipkv["ip"]; ip != "" {
				ips = ip
			}
		}
		parts = append(parts, fmt.Sprintf("%s [%s, %s, %s]", key, bridge, mac, ips))
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "; ")
}

// DiskSummary 把配置里所有磁盘条目汇总成一行
// cdrom 和 cloud-init 盘不算磁盘,跳过
// 格式: "scsi0: local-lvm:vm-100-disk-0 (size=32G)" 以 "; " 连接
func DiskSummary(cfg VMConfig) string {
	keys := matchingKeys(cfg, diskKeyRe)
	var parts []string
	for _, key := range keys {
		raw := cfgString(cfg, key)
		kv := parseKVString(raw)
		if kv["media"] == "cdrom" {
			continue
		}
		volid := kv[""]
		if strings.Contains(volid, "cloudinit") {
			continue
		}
		if volid == "" {
			volid = raw
		}
		if size := kv["size"]; size != "" {
			parts = append(parts, fmt.Sprintf("%s: %s (size=%s)", key, volid, size))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", key, volid))
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "; ")
}

// matchingKeys 返回匹配正则的配置键,排序保证输出稳定
func matchingKeys(cfg VMConfig, re *regexp.Regexp) []string {
	var keys []string
	for k := range cfg {
		if re.MatchString(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// SnapshotSummary 快照名汇总,"current" 是 Proxmox 的伪条目,排除
func SnapshotSummary(snaps []SnapshotEntry) string {
	var names []string
	for _, s := range snaps {
		if s.Name == "current" {
			continue
		}
		names = append(names, s.Name)
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "; ")
}

// AgentNote guest agent 配置说明
func AgentNote(cfg VMConfig) string {
	agent := cfgString(cfg, "agent")
	if first, _, _ := strings.Cut(agent, ","); first == "1" {
		return "QEMU guest agent enabled"
	}
	return "QEMU guest agent disabled"
}

// DynamicMemory balloon 目标值非零即认为启用了动态内存
func DynamicMemory(cfg VMConfig) bool {
	if _, ok := cfg["balloon"]; !ok {
		return false
	}
	return cfgInt(cfg, "balloon", 0) != 0
}
