package hyperv

// collectScript 在目标主机上执行的采集脚本,输出一个 JSON 文档
// 字段与 report/vmInfo 对应
// 磁盘描述读不到时(权限不足或 VHD 在远端共享上)降级为占位文本
const collectScript = `
$ErrorActionPreference = 'Stop'
$cs = Get-CimInstance Win32_ComputerSystem
$os = Get-CimInstance Win32_OperatingSystem
$proc = Get-CimInstance Win32_Processor | Select-Object -First 1

$vms = @(Get-VM | ForEach-Object {
    $vm = $_
    $nics = @($vm | Get-VMNetworkAdapter | ForEach-Object {
        $ips = if ($_.IPAddresses) { $_.IPAddresses -join ',' } else { '-' }
        '{0} [{1}, {2}, {3}]' -f $_.Name, $_.SwitchName, $_.MacAddress, $ips
    }) -join '; '
    $disks = @($vm | Get-VMHardDiskDrive | ForEach-Object {
        $info = '(info unavailable)'
        try {
            $vhd = Get-VHD -Path $_.Path
            $info = '({0:N1} GB, {1:N1} GB used)' -f ($vhd.Size / 1GB), ($vhd.FileSize / 1GB)
        } catch {}
        '{0}#{1}: {2} {3}' -f $_.ControllerType, $_.ControllerLocation, $_.Path, $info
    }) -join '; '
    $checkpoints = @($vm | Get-VMSnapshot -ErrorAction SilentlyContinue | ForEach-Object { $_.Name }) -join '; '
    if (-not $checkpoints) { $checkpoints = 'None' }
    [pscustomobject]@{
        Name          = $vm.Name
        State         = $vm.State.ToString()
        CPUCount      = $vm.ProcessorCount
        MemoryMB      = [int64]($vm.MemoryAssigned / 1MB)
        UptimeSeconds = [int64]$vm.Uptime.TotalSeconds
        Generation    = $vm.Generation
        DynamicMemory = $vm.DynamicMemoryEnabled
        NICs          = $nics
        Disks         = $disks
        Checkpoints   = $checkpoints
        Integration   = [string]$vm.IntegrationServicesVersion
    }
})

[pscustomobject]@{
    Host = [pscustomobject]@{
        Name     = $cs.Name
        CPU      = '{0} ({1})' -f $proc.Name, $cs.NumberOfLogicalProcessors
        MemoryGB = [math]::Round($cs.TotalPhysicalMemory / 1GB, 1)
        Version  = $os.Version
    }
    VMs = $vms
} | ConvertTo-Json -Depth 6 -Compress
`
