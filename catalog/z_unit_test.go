package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/clawlab/errs"
)

const cfgA = `
machine_name: alpha
machine_id: 1
prizes:
  - {kind: plush, base_rate: 0.5, reward_min: 50, reward_max: 100, count: 2, width: 8, height: 8}
`

const cfgB = `{"machine_name":"beta","machine_id":2,"prizes":[{"kind":"coin","base_rate":0.6,"coin_grant":1,"count":3,"width":5,"height":5}]}`

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	src := fstest.MapFS{
		"alpha.yaml": {Data: []byte(cfgA)},
		"beta.json":  {Data: []byte(cfgB)},
		"picky.js":   {Data: []byte("function next(v){return 'grab'}")},
	}
	c, err := New(src)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestRegisterAndLookup(t *testing.T) {
	c := newTestCatalog(t)
	err := c.Register(
		Entry{MID: 2, Name: "Beta", ConfigName: "beta.json"},
		Entry{MID: 1, Name: "alpha", ConfigName: "alpha.yaml"},
	)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ids := c.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids got %v", ids)
	}
	ms, err := c.MachineSettingByName(" BETA ")
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if ms.MachineName != "beta" {
		t.Fatalf("by name got %q", ms.MachineName)
	}
	sums, err := c.Summaries()
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(sums) != 2 || sums[0].Name != "alpha" || sums[1].Prizes[0] != "coin" {
		t.Fatalf("summaries got %+v", sums)
	}
	if _, err := c.MachineSettingByID(9); !errs.IsNotFound(err) {
		t.Fatalf("missing id should be NotFound, got %v", err)
	}
}

func TestRegisterRejects(t *testing.T) {
	c := newTestCatalog(t)
	if err := c.Register(Entry{MID: 1, Name: "a", ConfigName: "alpha.yaml"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.Register(Entry{MID: 1, Name: "b", ConfigName: "beta.json"}); err != ErrDupID {
		t.Fatalf("dup id got %v", err)
	}
	if err := c.Register(Entry{MID: 3, Name: "c", ConfigName: "nope.yaml"}); err == nil {
		t.Fatalf("missing config should fail")
	}
	if err := c.Register(Entry{MID: 4, Name: "d", ConfigName: "sub/x.yaml"}); err == nil {
		t.Fatalf("path config name should fail")
	}
	c.Freeze()
	if err := c.Register(Entry{MID: 5, Name: "e", ConfigName: "beta.json"}); err == nil {
		t.Fatalf("register after freeze should fail")
	}
}

func TestFlatFSAndAssets(t *testing.T) {
	if _, err := New(fstest.MapFS{"dir/a.yaml": {Data: []byte(cfgA)}}); err == nil {
		t.Fatalf("nested fs should be rejected")
	}
	c := newTestCatalog(t)
	raw, err := c.Cfg().ReadAsset("picky.js")
	if err != nil || len(raw) == 0 {
		t.Fatalf("read asset: %v", err)
	}
	if _, err := c.Cfg().ReadAsset("none.js"); !errs.IsNotFound(err) {
		t.Fatalf("missing asset should be NotFound, got %v", err)
	}
	if _, err := c.Cfg().ReadAsset("../x.js"); err == nil {
		t.Fatalf("path asset should fail")
	}
}

func TestDiscover(t *testing.T) {
	c := newTestCatalog(t)
	found, err := c.Discover()
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(found) != 2 || found[0].Entry.ConfigName != "alpha.yaml" || found[1].Entry.MID != 2 {
		t.Fatalf("found got %+v", found)
	}
	if found[1].Setting.MachineName != "beta" {
		t.Fatalf("setting got %q", found[1].Setting.MachineName)
	}
	if len(c.IDs()) != 0 {
		t.Fatalf("discover must not register")
	}
	bad, err := New(fstest.MapFS{"x.yaml": {Data: []byte("machine_id: [")}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := bad.Discover(); err == nil {
		t.Fatalf("broken yaml should fail")
	}
}
