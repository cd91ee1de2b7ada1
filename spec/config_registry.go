package spec

import (
	"encoding/json"

	"github.com/zintix-labs/clawlab/errs"
	"gopkg.in/yaml.v3"
)

// GetMachineSettingByYAML
// 會讀取 YAML 設定、補上預設值並執行基本檢查後回傳。
func GetMachineSettingByYAML(data []byte) (*MachineSetting, error) {
	ms := newWithDefaults()
	if err := yaml.Unmarshal(data, ms); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}
	if err := ms.init(); err != nil {
		return nil, errs.Wrap(err, "machine setting initialized err")
	}
	return ms, nil
}

// GetMachineSettingByJSON
// 會讀取 Json 設定、補上預設值並執行基本檢查後回傳
func GetMachineSettingByJSON(data []byte) (*MachineSetting, error) {
	ms := newWithDefaults()
	if err := json.Unmarshal(data, ms); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}
	if err := ms.init(); err != nil {
		return nil, errs.Wrap(err, "machine setting initialized err")
	}
	return ms, nil
}
