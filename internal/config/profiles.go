package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"quantsig/internal/analysis/signal"
	"quantsig/internal/logger"
)

// ProfileFile 是 profiles.yaml 的顶层结构。
type ProfileFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile 按币种定制信号参数；未设置的字段回落到默认值。
type Profile struct {
	Targets []string      `yaml:"targets,omitempty"`
	Default bool          `yaml:"default,omitempty"`
	Signal  signal.Config `yaml:"signal,omitempty"`
}

// TargetsUpper 返回去重后的大写 symbol 列表。
func (p Profile) TargetsUpper() []string {
	seen := make(map[string]struct{}, len(p.Targets))
	out := make([]string, 0, len(p.Targets))
	for _, t := range p.Targets {
		sym := strings.ToUpper(strings.TrimSpace(t))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

// ProfileManager 按 symbol 解析信号参数。
type ProfileManager struct {
	path string

	mu          sync.RWMutex
	profiles    map[string]Profile
	symbolIndex map[string]string
	defaultName string
}

func NewProfileManager(path string) *ProfileManager {
	return &ProfileManager{
		path:        path,
		profiles:    make(map[string]Profile),
		symbolIndex: make(map[string]string),
	}
}

// Load 重新读取 profiles.yaml；文件缺失时保留空集并回落默认参数。
func (m *ProfileManager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("profiles 文件不存在: %s，所有 symbol 使用默认参数", m.path)
			return nil
		}
		return fmt.Errorf("读取 profiles 失败: %w", err)
	}
	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("解析 profiles 失败: %w", err)
	}

	profiles := make(map[string]Profile, len(file.Profiles))
	index := make(map[string]string)
	defaultName := ""
	for name, p := range file.Profiles {
		p.Signal = signal.Normalize(p.Signal)
		if err := p.Signal.Validate(); err != nil {
			logger.Warnf("profile %s 参数非法，已跳过: %v", name, err)
			continue
		}
		profiles[name] = p
		for _, sym := range p.TargetsUpper() {
			index[sym] = name
		}
		if p.Default {
			defaultName = name
		}
	}

	m.mu.Lock()
	m.profiles = profiles
	m.symbolIndex = index
	m.defaultName = defaultName
	m.mu.Unlock()
	logger.Infof("profiles 已加载: %d 个（default=%q）", len(profiles), defaultName)
	return nil
}

// Resolve 返回 symbol 对应的信号参数：命中 targets 用其 profile，
// 否则用 default profile，再否则用内置默认值。
func (m *ProfileManager) Resolve(symbol string) signal.Config {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	m.mu.RLock()
	defer m.mu.RUnlock()
	if name, ok := m.symbolIndex[sym]; ok {
		return m.profiles[name].Signal
	}
	if m.defaultName != "" {
		return m.profiles[m.defaultName].Signal
	}
	return signal.DefaultConfig()
}

// Profiles 返回当前快照的拷贝。
func (m *ProfileManager) Profiles() map[string]Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Profile, len(m.profiles))
	for name, p := range m.profiles {
		out[name] = p
	}
	return out
}

// Update 写入或覆盖一个 profile 并原子落盘（tmp+rename）。
func (m *ProfileManager) Update(name string, p Profile) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("profile 名称不能为空")
	}
	p.Signal = signal.Normalize(p.Signal)
	if err := p.Signal.Validate(); err != nil {
		return fmt.Errorf("profile %s 参数非法: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]Profile, len(m.profiles)+1)
	for k, v := range m.profiles {
		next[k] = v
	}
	next[name] = p

	data, err := yaml.Marshal(ProfileFile{Profiles: next})
	if err != nil {
		return fmt.Errorf("序列化 profiles 失败: %w", err)
	}
	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("替换 profiles 文件失败: %w", err)
	}

	m.profiles = next
	index := make(map[string]string)
	defaultName := ""
	for pname, prof := range next {
		for _, sym := range prof.TargetsUpper() {
			index[sym] = pname
		}
		if prof.Default {
			defaultName = pname
		}
	}
	m.symbolIndex = index
	m.defaultName = defaultName
	return nil
}
