package spec

import (
	"bytes"

	"github.com/zintix-labs/clawlab/errs"
	"gopkg.in/yaml.v3"
)

// DecodeStrict 會把 map[string]any 轉成你要的型別 T（例如 bot 參數）。
// 多寫或拼錯欄位會回傳錯誤；src 為空時 out 保持原值。
func DecodeStrict[T any](src map[string]any, out *T) error {
	if len(src) == 0 {
		return nil
	}
	bs, err := yaml.Marshal(src)
	if err != nil {
		return errs.Wrap(err, "spec.decode_strict : marshal failed")
	}
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	if err = dec.Decode(out); err != nil {
		return errs.Wrap(err, "spec.decode_strict : decode failed")
	}
	return nil
}

// DecodeBot 將 MachineSetting.Bot 嚴格解碼到 out。
func DecodeBot[T any](ms *MachineSetting, out *T) error {
	if ms == nil {
		return errs.NewFatal("nil machine setting")
	}
	return DecodeStrict(ms.Bot, out)
}
