package tryon

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"

	nhttp "github.com/chaos-io/tryon/util/http"
)

// RemoteRemover 把商品图上传到抠图服务，服务返回带透明通道的 PNG
//
//	curl -X POST "$URL" -F "image=@item.png" -F "type=input"
type RemoteRemover struct {
	url      string
	cli      nhttp.IClient
	maxBytes int64
	logger   *slog.Logger
}

func NewRemoteRemover(url string, cli nhttp.IClient, maxBytes int64, logger *slog.Logger) *RemoteRemover {
	if cli == nil {
		cli = nhttp.NewHTTPClient()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RemoteRemover{url: url, cli: cli, maxBytes: maxBytes, logger: logger}
}

func (r *RemoteRemover) Fingerprint() string {
	return "remote:" + r.url
}

func (r *RemoteRemover) Remove(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error) {
	if err := validateBuffer(img); err != nil {
		return nil, err
	}

	data, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("%w: encode item: %v", ErrProcessing, err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="item.png"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	_ = writer.WriteField("type", "input")
	_ = writer.Close()

	var resp []byte
	reqParam := &nhttp.RequestParam{
		RequestURI:   r.url,
		Method:       http.MethodPost,
		Header:       map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:         body,
		Response:     &resp,
		MaxBodyBytes: r.maxBytes,
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("%w: remote background removal: %v", ErrProcessing, err)
	}
	r.logger.Debug("remote background removed", "url", r.url, "size", len(resp))

	// 结果尺寸必须与输入相同，先按输入像素数限制解码
	out, err := DecodeImageWithin(resp, img.Bounds().Dx()*img.Bounds().Dy())
	if err != nil {
		return nil, fmt.Errorf("%w: remote result: %v", ErrProcessing, err)
	}
	if out.Bounds().Size() != img.Bounds().Size() {
		return nil, fmt.Errorf("%w: remote result is %v, want %v", ErrProcessing, out.Bounds().Size(), img.Bounds().Size())
	}
	return out, nil
}
