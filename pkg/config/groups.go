package config

import (
	"fmt"

	"github.com/wentf9/vtool/pkg/models"
)

// FindGroupForHost 返回拥有该地址的组
// 按存储顺序线性扫描,第一个命中的组生效;正常情况下地址不会出现在
// 两个组里(AddHostToGroup 会从旧组移除),但扫描顺序保证了即使数据
// 被手工改坏,结果也是确定的
func (c *Configuration) FindGroupForHost(address string) *models.GroupRecord {
	for i := range c.Groups {
		if c.Groups[i].HasHost(address) {
			return &c.Groups[i]
		}
	}
	return nil
}

// AddGroup 创建新组,组名唯一
func (c *Configuration) AddGroup(g models.GroupRecord) error {
	if g.Name == "" {
		return fmt.Errorf("group name must not be empty")
	}
	if c.FindGroup(g.Name) != nil {
		return fmt.Errorf("group '%s' already exists", g.Name)
	}
	if !g.Kind.Valid() {
		return fmt.Errorf("invalid hypervisor type '%s'", g.Kind)
	}
	c.Groups = append(c.Groups, g)
	return nil
}

// DeleteGroup 删除组
// 只删除组本身,组内主机的连接历史保持不变
func (c *Configuration) DeleteGroup(name string) error {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			c.Groups = append(c.Groups[:i], c.Groups[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("group '%s' not found", name)
}

// AddHostToGroup 将地址加入组
// 如果地址已属于其他组,先从旧组移除,保证一个地址最多属于一个组
func (c *Configuration) AddHostToGroup(groupName, address string) error {
	target := c.FindGroup(groupName)
	if target == nil {
		return fmt.Errorf("group '%s' not found", groupName)
	}
	if target.HasHost(address) {
		return nil
	}
	for i := range c.Groups {
		c.Groups[i].RemoveHost(address)
	}
	target.Hosts = append(target.Hosts, address)
	return nil
}

// RemoveHostFromGroup 将地址从组中移除
func (c *Configuration) RemoveHostFromGroup(groupName, address string) error {
	g := c.FindGroup(groupName)
	if g == nil {
		return fmt.Errorf("group '%s' not found", groupName)
	}
	if !g.RemoveHost(address) {
		return fmt.Errorf("host '%s' is not in group '%s'", address, groupName)
	}
	return nil
}
