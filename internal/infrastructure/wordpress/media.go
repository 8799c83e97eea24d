package wordpress

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"ArticlesPublisher/internal/ports"
)

type mediaResponse struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

// UploadMedia sends the file as multipart form data together with its alt text.
func (c *Client) UploadMedia(ctx context.Context, upload ports.MediaUpload) (ports.Media, error) {
	if len(upload.Data) == 0 {
		return ports.Media{}, fmt.Errorf("upload media %s: empty file", upload.Filename)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, upload.Filename))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(upload.Data)
	}
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return ports.Media{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return ports.Media{}, fmt.Errorf("write form file: %w", err)
	}
	if upload.AltText != "" {
		if err := form.WriteField("alt_text", upload.AltText); err != nil {
			return ports.Media{}, fmt.Errorf("write alt text: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return ports.Media{}, fmt.Errorf("close form: %w", err)
	}

	var out mediaResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/wp/v2/media",
		body:        &buf,
		contentType: form.FormDataContentType(),
	}, &out)
	if err != nil {
		return ports.Media{}, fmt.Errorf("upload media %s: %w", upload.Filename, err)
	}
	return ports.Media{ID: out.ID, URL: out.SourceURL}, nil
}
