package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wentf9/vtool/pkg/models"
)

// DefaultFilename 导出文件默认名,带生成时间戳
func DefaultFilename(now time.Time) string {
	return "vm-inventory-" + now.Format("20060102-150405") + ".csv"
}

// WriteCSV 把虚拟机清单写成 CSV,表头即归一化结构的字段名
func WriteCSV(path string, vms []models.VMRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.VMRecordHeader); err != nil {
		return err
	}
	for _, vm := range vms {
		row := []string{
			vm.Platform,
			vm.HostName,
			vm.HostCPU,
			vm.HostMemoryGB,
			vm.HostVersion,
			vm.VMName,
			vm.State,
			strconv.Itoa(vm.CPUCount),
			strconv.FormatInt(vm.MemoryMB, 10),
			vm.Uptime,
			vm.Generation,
			strconv.FormatBool(vm.DynamicMem),
			vm.NICs,
			vm.Disks,
			vm.Checkpoints,
			vm.Integration,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
