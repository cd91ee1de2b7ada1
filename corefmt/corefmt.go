// Package corefmt 處理 PRNG 快照與 session 紀錄的傳輸格式。
//
// 快照本身是 []byte：JSON/HTTP 用 Base64URL，日誌用 Hex，檔案用長度前綴的 frame。
// session 紀錄（指令、事件）以 JSON Lines 編碼後再用 zstd 壓縮。
package corefmt

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/clawlab/errs"
)

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.NewWithExtra(errs.Warn, "decode base64url failed", err.Error())
	}
	return b, nil
}

func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.NewWithExtra(errs.Warn, "decode hex failed", err.Error())
	}
	return b, nil
}

// WriteFrame 寫入 uvarint(len) || payload
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))
	if _, err := w.Write(hdr[:n]); err != nil {
		return errs.Wrap(err, "write frame header failed")
	}
	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(err, "write frame payload failed")
	}
	return nil
}

// ReadFrame 讀取 WriteFrame 寫入的 frame；maxBytes > 0 時限制長度。
func ReadFrame(r io.ByteReader, maxBytes uint64) ([]byte, error) {
	ln, err := binary.ReadUvarint(r)
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errs.NewWithExtra(errs.Warn, "read frame header failed", err.Error())
	}
	if maxBytes > 0 && ln > maxBytes {
		return nil, errs.NewWarn("read frame failed: payload exceeds maxBytes")
	}
	buf := make([]byte, ln)
	for i := range buf {
		c, err := r.ReadByte()
		if err != nil {
			return nil, errs.NewWarn("read frame failed: truncated payload")
		}
		buf[i] = c
	}
	return buf, nil
}

// EncodeJournal 把紀錄逐筆編成 JSON Lines 後 zstd 壓縮
func EncodeJournal[T any](records []T) ([]byte, error) {
	var raw bytes.Buffer
	enc := json.NewEncoder(&raw)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return nil, errs.Wrap(err, "encode journal record failed")
		}
	}
	zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		return nil, errs.Wrap(err, "create zstd writer failed")
	}
	defer zw.Close()
	return zw.EncodeAll(raw.Bytes(), make([]byte, 0, raw.Len()/2)), nil
}

// DecodeJournal EncodeJournal 的反向
func DecodeJournal[T any](blob []byte) ([]T, error) {
	out := make([]T, 0, 16)
	if len(blob) == 0 {
		return out, nil
	}
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errs.Wrap(err, "create zstd reader failed")
	}
	defer zr.Close()
	raw, err := zr.DecodeAll(blob, nil)
	if err != nil {
		return nil, errs.NewWithExtra(errs.Warn, "zstd decode failed", err.Error())
	}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, errs.NewWithExtra(errs.Warn, "decode journal record failed", err.Error())
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(err, "scan journal failed")
	}
	return out, nil
}
