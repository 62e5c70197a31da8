package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/satriahrh/voxchat/domain"
)

const missingFileText = "错误：音频文件不存在"

// missingFileResult reports whether audioPath is gone, returning the
// error-flagged result every adapter hands back in that case.
func missingFileResult(audioPath string) (domain.TranscriptionResult, bool) {
	if _, err := os.Stat(audioPath); errors.Is(err, fs.ErrNotExist) {
		return domain.TranscriptionResult{Text: missingFileText, Error: true}, true
	}
	return domain.TranscriptionResult{}, false
}

type formField struct {
	name  string
	value string
}

// postAudioForm uploads the file at audioPath as the multipart "file" field
// followed by fields, returning the status code and the full response body.
func postAudioForm(ctx context.Context, client *http.Client, endpoint, bearer, audioPath string, fields ...formField) (int, []byte, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return 0, nil, fmt.Errorf("read audio file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return 0, nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return 0, nil, fmt.Errorf("write audio data: %w", err)
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return 0, nil, fmt.Errorf("write %s field: %w", f.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return 0, nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

// textFromBody extracts the "text" field of a JSON object body. Bodies that
// are not such an object are returned verbatim.
func textFromBody(data []byte) string {
	if gjson.ValidBytes(data) {
		parsed := gjson.ParseBytes(data)
		if parsed.IsObject() {
			if text := parsed.Get("text"); text.Exists() {
				return text.String()
			}
		}
	}
	return string(bytes.TrimSpace(data))
}
