// Package catalog 管理機台目錄：哪些機台存在、各自對應哪一個設定檔。
//
// 設定來源是一或多個扁平的 fs.FS（通常是 go:embed）。.yaml/.yml/.json 視為機台設定，
// 其餘檔案（例如 bot 腳本）視為附檔，可透過 ReadAsset 讀取。
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/spec"
)

var (
	ErrDupID   = errs.NewFatal("duplicate machine id")
	ErrDupName = errs.NewFatal("duplicate machine name")
)

// Entry 一台已登記的機台；Name 一律以小寫保存。
type Entry struct {
	MID        spec.MID
	Name       string
	ConfigName string
}

// Summary 對外列出機台時使用的摘要
type Summary struct {
	MID        spec.MID `json:"mid"`
	Name       string   `json:"name"`
	StartCoins int      `json:"start_coins"`
	Prizes     []string `json:"prizes"`
	Config     string   `json:"config"`
}

func SummaryOf(ms *spec.MachineSetting, cfgName string) Summary {
	s := Summary{
		MID:        ms.MachineID,
		Name:       ms.MachineName,
		StartCoins: ms.Progress.StartCoins,
		Config:     cfgName,
	}
	for _, p := range ms.Prizes {
		s.Prizes = append(s.Prizes, p.Kind)
	}
	return s
}

// Found 由 Discover 掃出、尚未登記的設定
type Found struct {
	Entry   Entry
	Setting *spec.MachineSetting
}

// Catalog 先 Register 再 Freeze；Freeze 之後只讀，可併發查詢。
type Catalog struct {
	src     *multiFS
	entries map[spec.MID]Entry
	names   map[string]spec.MID
	configs map[string]spec.MID
	order   []spec.MID
	frozen  bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	src, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		src:     src,
		entries: make(map[spec.MID]Entry),
		names:   make(map[string]spec.MID),
		configs: make(map[string]spec.MID),
	}, nil
}

func normName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register 整批登記：任一筆不合法（或彼此重複）就全部不登記。
func (c *Catalog) Register(ents ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	ids := make(map[spec.MID]bool, len(ents))
	names := make(map[string]bool, len(ents))
	cfgs := make(map[string]bool, len(ents))
	for i := range ents {
		e := &ents[i]
		e.Name = normName(e.Name)
		if e.Name == "" {
			return errs.NewFatal("machine name required")
		}
		if err := checkConfigName(e.ConfigName); err != nil {
			return err
		}
		if !c.src.has(e.ConfigName) {
			return errs.Fatalf("config file not found: %s", e.ConfigName)
		}
		if _, dup := c.entries[e.MID]; dup || ids[e.MID] {
			return ErrDupID
		}
		if _, dup := c.names[e.Name]; dup || names[e.Name] {
			return ErrDupName
		}
		if _, dup := c.configs[e.ConfigName]; dup || cfgs[e.ConfigName] {
			return errs.Fatalf("duplicate config name: %s", e.ConfigName)
		}
		ids[e.MID], names[e.Name], cfgs[e.ConfigName] = true, true, true
	}
	for _, e := range ents {
		c.entries[e.MID] = e
		c.names[e.Name] = e.MID
		c.configs[e.ConfigName] = e.MID
		c.order = append(c.order, e.MID)
	}
	slices.Sort(c.order)
	return nil
}

// Discover 解析所有設定來源中的機台設定（依檔名排序），不登記。
func (c *Catalog) Discover() ([]Found, error) {
	var out []Found
	for _, name := range c.src.configNames() {
		ms, err := c.load(name)
		if err != nil {
			return nil, errs.WrapWithExtra(err, "parse machine setting failed", name)
		}
		if strings.TrimSpace(ms.MachineName) == "" {
			return nil, errs.Fatalf("machine name required: %s", name)
		}
		out = append(out, Found{
			Entry:   Entry{MID: ms.MachineID, Name: strings.TrimSpace(ms.MachineName), ConfigName: name},
			Setting: ms,
		})
	}
	return out, nil
}

func (c *Catalog) GetByID(id spec.MID) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	id, ok := c.names[normName(name)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[id], true
}

// IDs 依 MID 遞增
func (c *Catalog) IDs() []spec.MID {
	if len(c.order) == 0 {
		return nil
	}
	return slices.Clone(c.order)
}

func (c *Catalog) All() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

func (c *Catalog) Cfg() *multiFS {
	return c.src
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

// MachineSettingByID 每次都重新讀檔解析，回傳的設定可以自由修改。
func (c *Catalog) MachineSettingByID(id spec.MID) (*spec.MachineSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.NotFoundf("machine id %d does not exist in catalog", id)
	}
	return c.load(e.ConfigName)
}

func (c *Catalog) MachineSettingByName(name string) (*spec.MachineSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.NotFoundf("machine %q does not exist in catalog", name)
	}
	return c.load(e.ConfigName)
}

// Summaries 依 MID 排序
func (c *Catalog) Summaries() ([]Summary, error) {
	out := make([]Summary, 0, len(c.order))
	for _, e := range c.All() {
		ms, err := c.load(e.ConfigName)
		if err != nil {
			return nil, errs.WrapWithExtra(err, "catalog summary failed", e.ConfigName)
		}
		out = append(out, SummaryOf(ms, e.ConfigName))
	}
	return out, nil
}

func (c *Catalog) load(name string) (*spec.MachineSetting, error) {
	raw, err := c.src.read(name)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(path.Ext(name), ".json") {
		return spec.GetMachineSettingByJSON(raw)
	}
	return spec.GetMachineSettingByYAML(raw)
}

func isConfigFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// checkConfigName 只接受不以 . 開頭的 basename，且副檔名為 yaml/yml/json
func checkConfigName(name string) error {
	switch {
	case name == "":
		return errs.NewFatal("empty config filename")
	case strings.ContainsAny(name, `/\:`):
		return errs.Fatalf("invalid config filename: %q (must be a basename)", name)
	case strings.HasPrefix(name, "."):
		return errs.Fatalf("invalid config filename: %q (cannot start with '.')", name)
	case !isConfigFile(name):
		return errs.Fatalf("invalid config filename: %q (must end with .yaml, .yml or .json)", name)
	}
	return nil
}

// ============================================================
// ** multiFS ** 多個扁平設定來源；設定檔名跨來源不可重複
// ============================================================

type multiFS struct {
	src   []fs.FS
	index map[string]int
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	m := &multiFS{src: src, index: make(map[string]int)}
	for i, s := range src {
		if s == nil {
			return nil, errs.Fatalf("fs[%d] is nil", i)
		}
		ents, err := fs.ReadDir(s, ".")
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("read fs[%d] failed", i))
		}
		for _, d := range ents {
			name := d.Name()
			if d.IsDir() {
				return nil, errs.Fatalf("config FS must be flat (no subdirectories): %q", name)
			}
			if strings.HasPrefix(name, ".") || !isConfigFile(name) {
				continue
			}
			if prev, dup := m.index[name]; dup {
				return nil, errs.Fatalf("duplicate config %q in fs[%d] and fs[%d]", name, prev, i)
			}
			m.index[name] = i
		}
	}
	return m, nil
}

func (m *multiFS) has(name string) bool {
	_, ok := m.index[name]
	return ok
}

func (m *multiFS) configNames() []string {
	out := make([]string, 0, len(m.index))
	for k := range m.index {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (m *multiFS) read(name string) ([]byte, error) {
	i, ok := m.index[name]
	if !ok {
		return nil, errs.NotFoundf("config %q does not exist in catalog", name)
	}
	raw, err := fs.ReadFile(m.src[i], name)
	if err != nil {
		return nil, errs.Wrap(err, "catalog read file error")
	}
	return raw, nil
}

// ReadAsset 讀取附檔（例如 bot 腳本），依來源順序取第一個找到的。
func (m *multiFS) ReadAsset(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\:`) || strings.HasPrefix(name, ".") {
		return nil, errs.Warnf("invalid asset name: %q", name)
	}
	for _, src := range m.src {
		raw, err := fs.ReadFile(src, name)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(err, "read asset failed")
		}
	}
	return nil, errs.NotFoundf("asset %q not found", name)
}
