package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 壓縮等級；Compression 依 Accept-Encoding 優先選 zstd，其次 gzip。
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// encoder gzip.Writer 與 zstd.Encoder 的共同介面
type encoder interface {
	io.WriteCloser
	Reset(w io.Writer)
	Flush() error
}

var (
	gzipPool = sync.Pool{New: func() any {
		gw, _ := gzip.NewWriterLevel(io.Discard, DefaultCompressConfig.GzipLevel)
		return gw
	}}
	zstdPool = sync.Pool{New: func() any {
		zw, err := zstd.NewWriter(io.Discard,
			zstd.WithEncoderLevel(DefaultCompressConfig.ZstdLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			panic(err)
		}
		return zw
	}}
)

func pickEncoding(accept string) (string, *sync.Pool) {
	switch {
	case strings.Contains(accept, "zstd"):
		return "zstd", &zstdPool
	case strings.Contains(accept, "gzip"):
		return "gzip", &gzipPool
	}
	return "", nil
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

// 1xx / 204 / 304 沒有 body
func isNoBodyStatus(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

type compressResponseWriter struct {
	http.ResponseWriter
	enc      encoder
	disabled bool // 遇到無 body 狀態碼時改為直寫
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	cw.Header().Del("Content-Length")
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.enc.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

// Compression 回應壓縮。HEAD、websocket 升級、已帶 Content-Encoding 的回應直接放行。
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || isWebSocketUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}
		name, pool := pickEncoding(r.Header.Get("Accept-Encoding"))
		if pool == nil {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", name)
		w.Header().Add("Vary", "Accept-Encoding")

		enc := pool.Get().(encoder)
		enc.Reset(w)
		cw := &compressResponseWriter{ResponseWriter: w, enc: enc}
		defer func() {
			// 204/304 時丟掉 Close 產生的 footer
			if cw.disabled {
				enc.Reset(io.Discard)
			}
			_ = enc.Close()
			pool.Put(enc)
		}()
		next.ServeHTTP(cw, r)
	})
}
