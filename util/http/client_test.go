package http

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngMagic 只需要能区分二进制内容，不必是完整图片
var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0xff}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	client, ok := NewHTTPClient().(*HTTPClient)
	require.True(t, ok)
	assert.Equal(t, defaultTimeout, client.client.Timeout)

	assert.Equal(t, 5*time.Second, NewHTTPClientWithTimeout(5*time.Second).client.Timeout)
	assert.Equal(t, defaultTimeout, NewHTTPClientWithTimeout(0).client.Timeout)
}

func TestHTTPClient_DoHTTPRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		param      func(url string) *RequestParam
		handler    http.HandlerFunc
		wantErrMsg string
		wantBody   []byte
	}{
		{
			name: "下载图片",
			param: func(url string) *RequestParam {
				return &RequestParam{Method: http.MethodGet, RequestURI: url + "/shirt.png"}
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/shirt.png", r.URL.Path)
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write(pngMagic)
			},
			wantBody: pngMagic,
		},
		{
			name: "上传字节，默认 octet-stream",
			param: func(url string) *RequestParam {
				return &RequestParam{Method: http.MethodPost, RequestURI: url, Body: pngMagic}
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
				data, _ := io.ReadAll(r.Body)
				assert.Equal(t, pngMagic, data)
				_, _ = w.Write([]byte("ok"))
			},
			wantBody: []byte("ok"),
		},
		{
			name: "显式 Content-Type 不被覆盖",
			param: func(url string) *RequestParam {
				return &RequestParam{
					Method:     http.MethodPut,
					RequestURI: url,
					Header:     map[string]string{"Content-Type": "image/png", "X-Request-Id": "r-1"},
					Body:       bytes.NewReader(pngMagic),
				}
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
				assert.Equal(t, "r-1", r.Header.Get("X-Request-Id"))
				w.WriteHeader(http.StatusNoContent)
			},
			wantBody: []byte{},
		},
		{
			name: "4xx 带响应体",
			param: func(url string) *RequestParam {
				return &RequestParam{Method: http.MethodGet, RequestURI: url}
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no such item", http.StatusNotFound)
			},
			wantErrMsg: "HTTP request failed with status 404: no such item",
		},
		{
			name: "5xx",
			param: func(url string) *RequestParam {
				return &RequestParam{Method: http.MethodPost, RequestURI: url, Body: pngMagic}
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErrMsg: "status 502",
		},
		{
			name: "不支持的请求体类型",
			param: func(url string) *RequestParam {
				return &RequestParam{Method: http.MethodPost, RequestURI: url, Body: map[string]string{"k": "v"}}
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				t.Error("request should not be sent")
			},
			wantErrMsg: "unsupported request body type map[string]string",
		},
		{
			name: "非法 URL",
			param: func(string) *RequestParam {
				return &RequestParam{Method: http.MethodGet, RequestURI: "://bad"}
			},
			handler:    func(w http.ResponseWriter, r *http.Request) {},
			wantErrMsg: "missing protocol scheme",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			defer server.Close()

			var body []byte
			param := tt.param(server.URL)
			param.Response = &body

			err := NewHTTPClient().DoHTTPRequest(context.Background(), param)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestHTTPClient_DoHTTPRequest_NilParam(t *testing.T) {
	t.Parallel()

	err := NewHTTPClient().DoHTTPRequest(context.Background(), nil)
	assert.EqualError(t, err, "request param is nil")
}

func TestHTTPClient_DoHTTPRequest_NilResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngMagic)
	}))
	defer server.Close()

	err := NewHTTPClient().DoHTTPRequest(context.Background(), &RequestParam{Method: http.MethodGet, RequestURI: server.URL})
	assert.NoError(t, err)
}

func TestHTTPClient_DoHTTPRequest_Multipart(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "item.png", header.Filename)
		assert.Equal(t, "input", r.FormValue("type"))

		data, _ := io.ReadAll(file)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	form := &bytes.Buffer{}
	writer := multipart.NewWriter(form)
	part, err := writer.CreateFormFile("image", "item.png")
	require.NoError(t, err)
	_, _ = part.Write(pngMagic)
	require.NoError(t, writer.WriteField("type", "input"))
	require.NoError(t, writer.Close())

	var body []byte
	err = NewHTTPClient().DoHTTPRequest(context.Background(), &RequestParam{
		Method:     http.MethodPost,
		RequestURI: server.URL,
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       form,
		Response:   &body,
	})
	require.NoError(t, err)
	assert.Equal(t, pngMagic, body)
}

func TestHTTPClient_DoHTTPRequest_MaxBodyBytes(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0xab}, 64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	tests := []struct {
		name    string
		limit   int64
		wantErr bool
	}{
		{name: "不限制", limit: 0},
		{name: "恰好等于上限", limit: 64},
		{name: "超过上限", limit: 63, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			err := NewHTTPClient().DoHTTPRequest(context.Background(), &RequestParam{
				Method:       http.MethodGet,
				RequestURI:   server.URL,
				Response:     &body,
				MaxBodyBytes: tt.limit,
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "exceeds 63 bytes")
				assert.Nil(t, body)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, payload, body)
		})
	}
}

func TestHTTPClient_DoHTTPRequest_Cancel(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	t.Run("请求超时", func(t *testing.T) {
		start := time.Now()
		err := NewHTTPClient().DoHTTPRequest(context.Background(), &RequestParam{
			Method:     http.MethodGet,
			RequestURI: server.URL,
			Timeout:    50 * time.Millisecond,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("调用方取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)

		err := NewHTTPClient().DoHTTPRequest(ctx, &RequestParam{Method: http.MethodGet, RequestURI: server.URL})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("客户端超时", func(t *testing.T) {
		err := NewHTTPClientWithTimeout(50*time.Millisecond).DoHTTPRequest(context.Background(), &RequestParam{
			Method:     http.MethodGet,
			RequestURI: server.URL,
		})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "Client.Timeout") || strings.Contains(err.Error(), "deadline"), err.Error())
	})
}
